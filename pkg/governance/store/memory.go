package store

import (
	"math/big"
	"sort"
	"sync"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance"
)

// MemoryStore is an in-memory implementation of ProposalStore, keyed by the
// registry's sequential id. It hands out copies so callers never alias the
// stored records.
type MemoryStore struct {
	proposals   map[uint64]*governance.Proposal
	delegations map[string]string
	mutex       sync.RWMutex
}

// NewMemoryStore creates a new memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		proposals:   make(map[uint64]*governance.Proposal),
		delegations: make(map[string]string),
	}
}

// SaveProposal saves a proposal to the store
func (s *MemoryStore) SaveProposal(proposal *governance.Proposal) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.proposals[proposal.ID] = cloneProposal(proposal)
	return nil
}

// GetProposal retrieves a proposal by id, nil if absent
func (s *MemoryStore) GetProposal(id uint64) (*governance.Proposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if proposal, exists := s.proposals[id]; exists {
		return cloneProposal(proposal), nil
	}
	return nil, nil
}

// ListProposals lists all proposals in id order
func (s *MemoryStore) ListProposals() ([]*governance.Proposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	proposals := make([]*governance.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		proposals = append(proposals, cloneProposal(proposal))
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].ID < proposals[j].ID
	})
	return proposals, nil
}

// ListProposalsByState lists proposals in one state in id order
func (s *MemoryStore) ListProposalsByState(state governance.ProposalState) ([]*governance.Proposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	proposals := make([]*governance.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.State == state {
			proposals = append(proposals, cloneProposal(proposal))
		}
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].ID < proposals[j].ID
	})
	return proposals, nil
}

// SetDelegation writes an outgoing delegation edge
func (s *MemoryStore) SetDelegation(from, to string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.delegations[from] = to
	return nil
}

// GetDelegation returns the delegatee of an address, empty if none
func (s *MemoryStore) GetDelegation(from string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.delegations[from], nil
}

// DeleteDelegation clears the outgoing delegation edge of an address
func (s *MemoryStore) DeleteDelegation(from string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.delegations, from)
	return nil
}

func cloneProposal(proposal *governance.Proposal) *governance.Proposal {
	clone := *proposal
	clone.Amount = new(big.Int).Set(proposal.Amount)
	clone.ForVotes = new(big.Int).Set(proposal.ForVotes)
	clone.AgainstVotes = new(big.Int).Set(proposal.AgainstVotes)
	clone.AbstainVotes = new(big.Int).Set(proposal.AbstainVotes)
	clone.Receipts = make(map[string]governance.VoteChoice, len(proposal.Receipts))
	for voter, choice := range proposal.Receipts {
		clone.Receipts[voter] = choice
	}
	return &clone
}

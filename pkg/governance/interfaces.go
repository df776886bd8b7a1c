package governance

import "math/big"

// StakeLedger defines the stake surface the registry consumes. The
// active-vote methods are reachable only through this interface; nothing
// outside the registry holds them.
type StakeLedger interface {
	// PowerOf returns an account's current voting power
	PowerOf(address string) *big.Int

	// TotalVotingPower returns the dampened transform of total staked value
	TotalVotingPower() *big.Int

	// Eligible reports whether an account meets the minimum proposer stake
	Eligible(address string) bool

	// IncrementActiveVotes records an outstanding vote for an account
	IncrementActiveVotes(address string)

	// DecrementActiveVotes releases an outstanding vote for an account
	DecrementActiveVotes(address string)
}

// ProposalStore defines methods for storing proposals and delegations
type ProposalStore interface {
	SaveProposal(proposal *Proposal) error
	GetProposal(id uint64) (*Proposal, error)
	ListProposals() ([]*Proposal, error)
	ListProposalsByState(state ProposalState) ([]*Proposal, error)

	SetDelegation(from, to string) error
	GetDelegation(from string) (string, error)
	DeleteDelegation(from string) error
}

package governance

import (
	"math/big"
	"sync"
	"time"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/authority"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

var hundred = big.NewInt(100)

// Registry owns proposal records, the delegation map, vote tallies and the
// lifecycle state machine. It reads voting power from the stake ledger and
// never writes to it beyond the active-vote counters.
type Registry struct {
	store  ProposalStore
	stakes StakeLedger
	auth   *authority.Registry
	events *event.Bus
	config *Config
	nextID uint64
	now    func() time.Time
	mutex  sync.Mutex
}

// NewRegistry creates a new proposal registry
func NewRegistry(
	store ProposalStore,
	stakes StakeLedger,
	auth *authority.Registry,
	events *event.Bus,
	config *Config,
) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	return &Registry{
		store:  store,
		stakes: stakes,
		auth:   auth,
		events: events,
		config: config,
		now:    time.Now,
	}
}

// SetClock overrides the registry's time source
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Config returns the registry configuration
func (r *Registry) Config() *Config {
	return r.config
}

// CreateProposal creates a new proposal in its tier's amount bracket and
// opens its voting window
func (r *Registry) CreateProposal(caller string, t tier.Tier, recipient string, amount *big.Int, description string) (uint64, error) {
	if caller == "" {
		return 0, errs.Validationf("proposer is required")
	}
	if recipient == "" {
		return 0, errs.Validationf("recipient is required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, errs.Validationf("amount must be positive")
	}
	if description == "" {
		return 0, errs.Validationf("description is required")
	}
	if !tier.InBracket(t, amount) {
		switch t {
		case tier.HighConviction:
			return 0, errs.Validationf("high_conviction tier requires > 10 units")
		case tier.Experimental:
			return 0, errs.Validationf("experimental tier requires 1 to 10 units")
		default:
			return 0, errs.Validationf("operational tier requires < 1 unit")
		}
	}
	if !r.stakes.Eligible(caller) {
		return 0, errs.Authorizationf("proposer %s below minimum stake", caller)
	}

	r.mutex.Lock()
	r.nextID++
	id := r.nextID
	now := r.now()
	proposal := &Proposal{
		ID:           id,
		Proposer:     caller,
		Tier:         t,
		Recipient:    recipient,
		Amount:       new(big.Int).Set(amount),
		Description:  description,
		ForVotes:     big.NewInt(0),
		AgainstVotes: big.NewInt(0),
		AbstainVotes: big.NewInt(0),
		StartTime:    now,
		EndTime:      now.Add(r.config.VotingPeriod),
		State:        ProposalStateActive,
		Receipts:     make(map[string]VoteChoice),
	}
	err := r.store.SaveProposal(proposal)
	r.mutex.Unlock()
	if err != nil {
		return 0, err
	}

	r.publish(ProposalCreatedEventType, ProposalCreatedEvent{
		ID:        id,
		Proposer:  caller,
		Tier:      t,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
	})
	return id, nil
}

// Vote casts a vote with the caller's own current voting power. A recorded
// delegation does not change whose power is tallied.
func (r *Registry) Vote(caller string, id uint64, choice VoteChoice) error {
	if caller == "" {
		return errs.Validationf("voter is required")
	}
	if choice != VoteFor && choice != VoteAgainst && choice != VoteAbstain {
		return errs.Validationf("invalid vote choice")
	}

	r.mutex.Lock()
	proposal, err := r.getProposal(id)
	if err != nil {
		r.mutex.Unlock()
		return err
	}
	if proposal.State != ProposalStateActive {
		r.mutex.Unlock()
		return errs.Statef("proposal %d is not active", id)
	}
	now := r.now()
	if now.Before(proposal.StartTime) || now.After(proposal.EndTime) {
		r.mutex.Unlock()
		return errs.Statef("voting window for proposal %d is closed", id)
	}
	if _, voted := proposal.Receipts[caller]; voted {
		r.mutex.Unlock()
		return ErrAlreadyVoted
	}
	power := r.stakes.PowerOf(caller)
	if power.Sign() <= 0 {
		r.mutex.Unlock()
		return errs.Resourcef("%s has no voting power", caller)
	}

	switch choice {
	case VoteFor:
		proposal.ForVotes = new(big.Int).Add(proposal.ForVotes, power)
	case VoteAgainst:
		proposal.AgainstVotes = new(big.Int).Add(proposal.AgainstVotes, power)
	case VoteAbstain:
		proposal.AbstainVotes = new(big.Int).Add(proposal.AbstainVotes, power)
	}
	proposal.Receipts[caller] = choice

	if err := r.store.SaveProposal(proposal); err != nil {
		r.mutex.Unlock()
		return err
	}
	r.stakes.IncrementActiveVotes(caller)
	r.mutex.Unlock()

	r.publish(VoteCastEventType, VoteCastEvent{
		ID:     id,
		Voter:  caller,
		Choice: choice,
		Power:  power,
	})
	return nil
}

// Delegate writes the caller's outgoing delegation edge. Delegation is
// bookkeeping only; it does not redirect vote weight.
func (r *Registry) Delegate(caller, to string) error {
	if caller == "" || to == "" {
		return errs.Validationf("delegator and delegatee are required")
	}
	if caller == to {
		return errs.Statef("cannot delegate to self")
	}

	r.mutex.Lock()
	// A -> B is refused while B -> A stands
	back, err := r.store.GetDelegation(to)
	if err == nil && back == caller {
		err = errs.Statef("delegation cycle: %s already delegates to %s", to, caller)
	}
	if err == nil {
		err = r.store.SetDelegation(caller, to)
	}
	r.mutex.Unlock()
	if err != nil {
		return err
	}

	r.publish(DelegationChangedEventType, DelegationChangedEvent{From: caller, To: to})
	return nil
}

// RevokeDelegate clears the caller's outgoing delegation edge
func (r *Registry) RevokeDelegate(caller string) error {
	if caller == "" {
		return errs.Validationf("delegator is required")
	}

	r.mutex.Lock()
	err := r.store.DeleteDelegation(caller)
	r.mutex.Unlock()
	if err != nil {
		return err
	}

	r.publish(DelegationChangedEventType, DelegationChangedEvent{From: caller})
	return nil
}

// DelegateOf returns the caller's delegatee, empty if none
func (r *Registry) DelegateOf(address string) (string, error) {
	return r.store.GetDelegation(address)
}

// QueueProposal evaluates quorum and threshold after the voting window and
// moves the proposal to Queued or Defeated. Voting concludes here either
// way: every voter's active-vote counter is released.
func (r *Registry) QueueProposal(caller string, id uint64) error {
	r.mutex.Lock()

	proposal, err := r.getProposal(id)
	if err != nil {
		r.mutex.Unlock()
		return err
	}
	if proposal.State != ProposalStateActive {
		r.mutex.Unlock()
		return errs.Statef("proposal %d is not active", id)
	}
	now := r.now()
	if !now.After(proposal.EndTime) {
		r.mutex.Unlock()
		return errs.Statef("voting window for proposal %d is still open", id)
	}

	params := tier.ParamsFor(proposal.Tier)
	participated := new(big.Int).Add(proposal.ForVotes, proposal.AgainstVotes)
	participated.Add(participated, proposal.AbstainVotes)
	totalPower := r.stakes.TotalVotingPower()

	// participated*100 >= totalPower*quorumPct
	lhs := new(big.Int).Mul(participated, hundred)
	rhs := new(big.Int).Mul(totalPower, big.NewInt(params.QuorumPct))
	if lhs.Cmp(rhs) < 0 {
		return r.defeat(proposal, "quorum not met")
	}

	// forVotes*100 >= (forVotes+againstVotes)*thresholdPct, abstain excluded
	decisive := new(big.Int).Add(proposal.ForVotes, proposal.AgainstVotes)
	lhs = new(big.Int).Mul(proposal.ForVotes, hundred)
	rhs = new(big.Int).Mul(decisive, big.NewInt(params.ThresholdPct))
	if lhs.Cmp(rhs) < 0 {
		return r.defeat(proposal, "threshold not met")
	}

	proposal.State = ProposalStateQueued
	proposal.QueuedTime = now
	r.releaseVoters(proposal)
	err = r.store.SaveProposal(proposal)
	r.mutex.Unlock()
	if err != nil {
		return err
	}

	r.publish(ProposalQueuedEventType, ProposalQueuedEvent{ID: id})
	return nil
}

// CancelProposal cancels an active or queued proposal. Guardian authority.
func (r *Registry) CancelProposal(caller string, id uint64) error {
	if err := r.auth.Require(caller, authority.Guardian); err != nil {
		return err
	}

	r.mutex.Lock()
	proposal, err := r.getProposal(id)
	if err != nil {
		r.mutex.Unlock()
		return err
	}
	if proposal.State != ProposalStateActive && proposal.State != ProposalStateQueued {
		r.mutex.Unlock()
		return errs.Statef("proposal %d cannot be cancelled from %s", id, proposal.State)
	}
	// Voters were already released when the proposal left Active
	if proposal.State == ProposalStateActive {
		r.releaseVoters(proposal)
	}
	proposal.State = ProposalStateCancelled
	err = r.store.SaveProposal(proposal)
	r.mutex.Unlock()
	if err != nil {
		return err
	}

	r.publish(ProposalCancelledEventType, ProposalCancelledEvent{ID: id})
	return nil
}

// MarkExecuted transitions a queued proposal to Executed. Executor
// authority; called only by the timelock scheduler. The transition is not
// announced here: the payout may still fail and unwind it, so the scheduler
// publishes proposal.executed once the whole handshake has committed.
func (r *Registry) MarkExecuted(caller string, id uint64) error {
	if err := r.auth.Require(caller, authority.Executor); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	proposal, err := r.getProposal(id)
	if err != nil {
		return err
	}
	if proposal.State != ProposalStateQueued {
		return errs.Statef("proposal %d is not queued", id)
	}
	proposal.State = ProposalStateExecuted
	return r.store.SaveProposal(proposal)
}

// RevokeExecution returns an Executed proposal to Queued. Executor
// authority; exists solely so the scheduler can unwind a failed payout
// without leaving a partial commit behind.
func (r *Registry) RevokeExecution(caller string, id uint64) error {
	if err := r.auth.Require(caller, authority.Executor); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	proposal, err := r.getProposal(id)
	if err != nil {
		return err
	}
	if proposal.State != ProposalStateExecuted {
		return errs.Statef("proposal %d is not executed", id)
	}
	proposal.State = ProposalStateQueued
	return r.store.SaveProposal(proposal)
}

// Proposal returns a proposal by id
func (r *Registry) Proposal(id uint64) (*Proposal, error) {
	return r.getStored(id)
}

// ListProposals returns all proposals
func (r *Registry) ListProposals() ([]*Proposal, error) {
	return r.store.ListProposals()
}

// ListProposalsByState returns proposals in the given state
func (r *Registry) ListProposalsByState(state ProposalState) ([]*Proposal, error) {
	return r.store.ListProposalsByState(state)
}

// HasVoted reports whether an account has voted on a proposal
func (r *Registry) HasVoted(id uint64, address string) (bool, error) {
	proposal, err := r.getStored(id)
	if err != nil {
		return false, err
	}
	_, voted := proposal.Receipts[address]
	return voted, nil
}

// VoteOf returns the recorded choice of an account on a proposal
func (r *Registry) VoteOf(id uint64, address string) (VoteChoice, bool, error) {
	proposal, err := r.getStored(id)
	if err != nil {
		return 0, false, err
	}
	choice, voted := proposal.Receipts[address]
	return choice, voted, nil
}

// defeat finalizes a failed proposal. Called with the mutex held; releases it.
func (r *Registry) defeat(proposal *Proposal, reason string) error {
	proposal.State = ProposalStateDefeated
	proposal.DefeatReason = reason
	r.releaseVoters(proposal)
	err := r.store.SaveProposal(proposal)
	r.mutex.Unlock()
	if err != nil {
		return err
	}
	r.publish(ProposalDefeatedEventType, ProposalDefeatedEvent{ID: proposal.ID, Reason: reason})
	return nil
}

func (r *Registry) releaseVoters(proposal *Proposal) {
	for voter := range proposal.Receipts {
		r.stakes.DecrementActiveVotes(voter)
	}
}

func (r *Registry) getProposal(id uint64) (*Proposal, error) {
	proposal, err := r.store.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

func (r *Registry) getStored(id uint64) (*Proposal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.getProposal(id)
}

func (r *Registry) publish(eventType event.Type, data any) {
	if r.events != nil {
		r.events.Publish(eventType, data)
	}
}

package governance

import (
	"math/big"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

const (
	ProposalCreatedEventType   = event.Type("proposal.created")
	VoteCastEventType          = event.Type("vote.cast")
	DelegationChangedEventType = event.Type("delegation.changed")
	ProposalQueuedEventType    = event.Type("proposal.queued")
	ProposalDefeatedEventType  = event.Type("proposal.defeated")
	ProposalExecutedEventType  = event.Type("proposal.executed")
	ProposalCancelledEventType = event.Type("proposal.cancelled")
)

// ProposalCreatedEvent reports a new proposal entering its voting window
type ProposalCreatedEvent struct {
	ID        uint64
	Proposer  string
	Tier      tier.Tier
	Recipient string
	Amount    *big.Int
}

// VoteCastEvent reports a recorded vote
type VoteCastEvent struct {
	ID     uint64
	Voter  string
	Choice VoteChoice
	Power  *big.Int
}

// DelegationChangedEvent reports a written or cleared delegation edge.
// To is empty when the edge was revoked.
type DelegationChangedEvent struct {
	From string
	To   string
}

// ProposalQueuedEvent reports a proposal passing quorum and threshold
type ProposalQueuedEvent struct {
	ID uint64
}

// ProposalDefeatedEvent reports a defeated proposal and why
type ProposalDefeatedEvent struct {
	ID     uint64
	Reason string
}

// ProposalExecutedEvent reports the single executed transition of a
// proposal. Published by the timelock scheduler once the payout has
// committed, never by the registry transition alone.
type ProposalExecutedEvent struct {
	ID uint64
}

// ProposalCancelledEvent reports a guardian cancellation
type ProposalCancelledEvent struct {
	ID uint64
}

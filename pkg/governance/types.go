package governance

import (
	"math/big"
	"time"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

// ProposalState represents the lifecycle state of a proposal
type ProposalState int

const (
	ProposalStateActive ProposalState = iota
	ProposalStateDefeated
	ProposalStateQueued
	ProposalStateExecuted
	ProposalStateCancelled
)

// String returns the state name
func (s ProposalState) String() string {
	switch s {
	case ProposalStateActive:
		return "active"
	case ProposalStateDefeated:
		return "defeated"
	case ProposalStateQueued:
		return "queued"
	case ProposalStateExecuted:
		return "executed"
	case ProposalStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from s
func (s ProposalState) Terminal() bool {
	return s == ProposalStateDefeated || s == ProposalStateExecuted || s == ProposalStateCancelled
}

// VoteChoice represents one of the three ballot options
type VoteChoice int

const (
	VoteFor VoteChoice = iota
	VoteAgainst
	VoteAbstain
)

// String returns the choice name
func (c VoteChoice) String() string {
	switch c {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// Proposal represents a treasury transfer proposal. Records are never
// destroyed: terminal states are retained for audit.
type Proposal struct {
	ID           uint64
	Proposer     string
	Tier         tier.Tier
	Recipient    string
	Amount       *big.Int
	Description  string
	ForVotes     *big.Int
	AgainstVotes *big.Int
	AbstainVotes *big.Int
	StartTime    time.Time
	EndTime      time.Time
	QueuedTime   time.Time
	State        ProposalState
	DefeatReason string
	Receipts     map[string]VoteChoice
}

// Config represents the governance configuration
type Config struct {
	// VotingPeriod is the fixed voting window, the same for every tier
	VotingPeriod time.Duration `json:"voting_period"`
	// Period is the length of one timelock delay period
	Period time.Duration `json:"period"`
}

// DefaultConfig returns the default governance configuration
func DefaultConfig() *Config {
	return &Config{
		VotingPeriod: 3 * 24 * time.Hour,
		Period:       24 * time.Hour,
	}
}

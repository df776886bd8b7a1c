package timelock

import (
	"math/big"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance"
)

// Registry defines the proposal surface the scheduler consumes
type Registry interface {
	// Proposal returns a proposal by id
	Proposal(id uint64) (*governance.Proposal, error)

	// MarkExecuted transitions a queued proposal to Executed
	MarkExecuted(caller string, id uint64) error

	// RevokeExecution unwinds MarkExecuted after a failed payout
	RevokeExecution(caller string, id uint64) error

	// CancelProposal cancels an active or queued proposal
	CancelProposal(caller string, id uint64) error
}

// Treasury defines the payout surface the scheduler drives
type Treasury interface {
	// Payout pays the approved transfer of one proposal, exactly once
	Payout(caller string, id uint64, recipient string, amount *big.Int) error
}

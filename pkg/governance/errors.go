package governance

import "github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"

var (
	// ErrProposalNotFound indicates the proposal was not found
	ErrProposalNotFound = errs.Statef("proposal not found")

	// ErrAlreadyVoted indicates the account already voted on the proposal
	ErrAlreadyVoted = errs.Statef("already voted on this proposal")
)

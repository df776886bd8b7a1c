package timelock

import (
	"sync"
	"time"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/authority"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

const (
	// MinDelay and MaxDelay bound admin delay updates
	MinDelay = time.Hour
	MaxDelay = 30 * 24 * time.Hour
)

type entry struct {
	releaseTime time.Time
	executed    bool
	busy        bool
}

// Scheduler gates execution of queued proposals behind their tier's delay
// and drives the registry/treasury handshake that pays each proposal
// exactly once
type Scheduler struct {
	registry Registry
	treasury Treasury
	auth     *authority.Registry
	events   *event.Bus
	delays   map[tier.Tier]time.Duration
	entries  map[uint64]*entry
	now      func() time.Time
	mutex    sync.Mutex
}

// NewScheduler creates a new timelock scheduler. Delays start at each
// tier's delay-period count times the configured period length.
func NewScheduler(
	registry Registry,
	treasury Treasury,
	auth *authority.Registry,
	events *event.Bus,
	config *governance.Config,
) *Scheduler {
	if config == nil {
		config = governance.DefaultConfig()
	}
	delays := make(map[tier.Tier]time.Duration)
	for _, t := range []tier.Tier{tier.HighConviction, tier.Experimental, tier.Operational} {
		delays[t] = time.Duration(tier.ParamsFor(t).DelayPeriods) * config.Period
	}
	return &Scheduler{
		registry: registry,
		treasury: treasury,
		auth:     auth,
		events:   events,
		delays:   delays,
		entries:  make(map[uint64]*entry),
		now:      time.Now,
	}
}

// SetClock overrides the scheduler's time source
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Schedule creates the execution schedule entry for a queued proposal.
// Created at most once per proposal id.
func (s *Scheduler) Schedule(id uint64) error {
	s.mutex.Lock()
	if _, exists := s.entries[id]; exists {
		s.mutex.Unlock()
		return errs.Statef("proposal %d already scheduled", id)
	}
	proposal, err := s.registry.Proposal(id)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	if proposal.State != governance.ProposalStateQueued {
		s.mutex.Unlock()
		return errs.Statef("proposal %d is not queued", id)
	}
	releaseTime := s.now().Add(s.delays[proposal.Tier])
	s.entries[id] = &entry{releaseTime: releaseTime}
	s.mutex.Unlock()

	s.publish(ScheduleCreatedEventType, ScheduleCreatedEvent{
		ID:          id,
		Tier:        proposal.Tier,
		ReleaseTime: releaseTime,
	})
	return nil
}

// Execute runs a scheduled proposal once its delay has elapsed: the entry
// is marked executed and busy before any outbound step, then the registry
// transition and the treasury payout happen as one unit. A payout failure
// unwinds the registry transition and the entry so nothing partial
// survives; the treasury's paid set independently stops a double payout.
// The proposal.executed notification is published here, after the payout,
// so the event log only ever records committed executions. Executor
// authority.
func (s *Scheduler) Execute(caller string, id uint64) error {
	if err := s.auth.Require(caller, authority.Executor); err != nil {
		return err
	}

	s.mutex.Lock()
	e, exists := s.entries[id]
	if !exists {
		s.mutex.Unlock()
		return errs.Statef("proposal %d is not scheduled", id)
	}
	if e.busy {
		s.mutex.Unlock()
		return errs.Statef("execution of proposal %d already in progress", id)
	}
	if e.executed {
		s.mutex.Unlock()
		return errs.Statef("proposal %d already executed", id)
	}
	if s.now().Before(e.releaseTime) {
		s.mutex.Unlock()
		return errs.Statef("timelock for proposal %d has not elapsed", id)
	}
	proposal, err := s.registry.Proposal(id)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	// A guardian cancellation after scheduling aborts execution
	if proposal.State != governance.ProposalStateQueued {
		s.mutex.Unlock()
		return errs.Statef("proposal %d is no longer queued", id)
	}
	e.executed = true
	e.busy = true
	s.mutex.Unlock()

	if err := s.registry.MarkExecuted(caller, id); err != nil {
		s.unwind(e)
		return err
	}
	if err := s.treasury.Payout(caller, id, proposal.Recipient, proposal.Amount); err != nil {
		// revoke cannot fail here: the transition we just made is the only
		// write since the Queued check
		_ = s.registry.RevokeExecution(caller, id)
		s.unwind(e)
		return err
	}

	s.mutex.Lock()
	e.busy = false
	s.mutex.Unlock()

	// Announced only now: an unwound execution must leave no trace in the log
	s.publish(governance.ProposalExecutedEventType, governance.ProposalExecutedEvent{ID: id})
	return nil
}

// Cancel clears the schedule entry of an unexecuted proposal and cancels
// the registry proposal. Guardian authority.
func (s *Scheduler) Cancel(caller string, id uint64) error {
	if err := s.auth.Require(caller, authority.Guardian); err != nil {
		return err
	}

	s.mutex.Lock()
	e, exists := s.entries[id]
	if !exists {
		s.mutex.Unlock()
		return errs.Statef("proposal %d is not scheduled", id)
	}
	if e.busy {
		s.mutex.Unlock()
		return errs.Statef("execution of proposal %d already in progress", id)
	}
	if e.executed {
		s.mutex.Unlock()
		return errs.Statef("proposal %d already executed", id)
	}
	proposal, err := s.registry.Proposal(id)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	if proposal.State != governance.ProposalStateQueued {
		s.mutex.Unlock()
		return errs.Statef("proposal %d is no longer queued", id)
	}
	delete(s.entries, id)
	s.mutex.Unlock()

	if err := s.registry.CancelProposal(caller, id); err != nil {
		s.mutex.Lock()
		s.entries[id] = e
		s.mutex.Unlock()
		return err
	}
	return nil
}

// IsExecutable reports whether Execute would currently pass its
// preconditions. Pure read for external pollers.
func (s *Scheduler) IsExecutable(id uint64) bool {
	s.mutex.Lock()
	e, exists := s.entries[id]
	if !exists || e.busy || e.executed || s.now().Before(e.releaseTime) {
		s.mutex.Unlock()
		return false
	}
	s.mutex.Unlock()

	proposal, err := s.registry.Proposal(id)
	if err != nil {
		return false
	}
	return proposal.State == governance.ProposalStateQueued
}

// ReleaseTime returns the release time of a scheduled proposal
func (s *Scheduler) ReleaseTime(id uint64) (time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.entries[id]
	if !exists {
		return time.Time{}, errs.Statef("proposal %d is not scheduled", id)
	}
	return e.releaseTime, nil
}

// Executed reports whether a scheduled proposal has been executed
func (s *Scheduler) Executed(id uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.entries[id]
	return exists && e.executed
}

// UpdateDelay sets a tier's execution delay, bounded to a sane range.
// Admin authority.
func (s *Scheduler) UpdateDelay(caller string, t tier.Tier, delay time.Duration) error {
	if err := s.auth.Require(caller, authority.Admin); err != nil {
		return err
	}
	if delay < MinDelay || delay > MaxDelay {
		return errs.Validationf("delay must be between %s and %s", MinDelay, MaxDelay)
	}

	s.mutex.Lock()
	s.delays[t] = delay
	s.mutex.Unlock()

	s.publish(DelayUpdatedEventType, DelayUpdatedEvent{Tier: t, Delay: delay})
	return nil
}

// Delay returns a tier's current execution delay
func (s *Scheduler) Delay(t tier.Tier) time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.delays[t]
}

func (s *Scheduler) unwind(e *entry) {
	s.mutex.Lock()
	e.executed = false
	e.busy = false
	s.mutex.Unlock()
}

func (s *Scheduler) publish(eventType event.Type, data any) {
	if s.events != nil {
		s.events.Publish(eventType, data)
	}
}

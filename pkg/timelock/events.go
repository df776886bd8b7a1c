package timelock

import (
	"time"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

const (
	ScheduleCreatedEventType = event.Type("schedule.created")
	DelayUpdatedEventType    = event.Type("delay.updated")
)

// ScheduleCreatedEvent is the scheduler's own notification that a queued
// proposal entered the timelock
type ScheduleCreatedEvent struct {
	ID          uint64
	Tier        tier.Tier
	ReleaseTime time.Time
}

// DelayUpdatedEvent reports a changed tier delay
type DelayUpdatedEvent struct {
	Tier  tier.Tier
	Delay time.Duration
}

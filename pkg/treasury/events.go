package treasury

import (
	"math/big"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

const (
	FundsAllocatedEventType  = event.Type("funds.allocated")
	PayoutExecutedEventType  = event.Type("payout.executed")
	FundsRebalancedEventType = event.Type("funds.rebalanced")
	CapUpdatedEventType      = event.Type("cap.updated")
)

// FundsAllocatedEvent reports value moved into a tier pool
type FundsAllocatedEvent struct {
	Tier    tier.Tier
	Amount  *big.Int
	Balance *big.Int
}

// PayoutExecutedEvent reports the one payout of a proposal
type PayoutExecutedEvent struct {
	ID        uint64
	Recipient string
	Tier      tier.Tier
	Amount    *big.Int
}

// FundsRebalancedEvent reports the pool balances after a rebalance
type FundsRebalancedEvent struct {
	Balances map[tier.Tier]*big.Int
}

// CapUpdatedEvent reports a changed pool cap
type CapUpdatedEvent struct {
	Tier   tier.Tier
	CapPct int64
}

package treasury

import (
	"math/big"
	"sync"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/authority"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

var hundred = big.NewInt(100)

// Transferer moves value out of the treasury to a recipient
type Transferer interface {
	Transfer(recipient string, amount *big.Int) error
}

// Ledger owns the three tier fund pools, the total treasury balance and the
// paid-proposal set that makes payouts exactly-once
type Ledger struct {
	pools    map[tier.Tier]*big.Int
	caps     map[tier.Tier]int64
	total    *big.Int
	paid     map[uint64]bool
	out      Transferer
	auth     *authority.Registry
	events   *event.Bus
	inPayout bool
	mutex    sync.Mutex
}

// NewLedger creates a new treasury ledger. Default caps: 50% high
// conviction, 30% experimental, 20% operational.
func NewLedger(out Transferer, auth *authority.Registry, events *event.Bus) *Ledger {
	return &Ledger{
		pools: map[tier.Tier]*big.Int{
			tier.HighConviction: big.NewInt(0),
			tier.Experimental:   big.NewInt(0),
			tier.Operational:    big.NewInt(0),
		},
		caps: map[tier.Tier]int64{
			tier.HighConviction: 50,
			tier.Experimental:   30,
			tier.Operational:    20,
		},
		total:  big.NewInt(0),
		paid:   make(map[uint64]bool),
		out:    out,
		auth:   auth,
		events: events,
	}
}

// Deposit grows the total treasury balance
func (l *Ledger) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("deposit amount must be positive")
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.total = new(big.Int).Add(l.total, amount)
	return nil
}

// Allocate moves value into a tier pool, bounded by the pool's cap share of
// the current total treasury. Allocator authority.
func (l *Ledger) Allocate(caller string, t tier.Tier, amount *big.Int) error {
	if err := l.auth.Require(caller, authority.Allocator); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("allocation amount must be positive")
	}

	l.mutex.Lock()
	updated := new(big.Int).Add(l.pools[t], amount)
	// updated*100 <= total*capPct
	lhs := new(big.Int).Mul(updated, hundred)
	rhs := new(big.Int).Mul(l.total, big.NewInt(l.caps[t]))
	if lhs.Cmp(rhs) > 0 {
		l.mutex.Unlock()
		return errs.Resourcef("allocation exceeds %s pool cap", t)
	}
	l.pools[t] = updated
	l.mutex.Unlock()

	l.publish(FundsAllocatedEventType, FundsAllocatedEvent{
		Tier:    t,
		Amount:  new(big.Int).Set(amount),
		Balance: new(big.Int).Set(updated),
	})
	return nil
}

// Payout pays the approved transfer of one proposal, exactly once. Executor
// authority; invoked by the timelock scheduler. The tier is re-derived from
// the amount with the same bracket function proposal creation used. All
// internal state settles before the outbound transfer; a failed transfer
// unwinds everything.
func (l *Ledger) Payout(caller string, id uint64, recipient string, amount *big.Int) error {
	if err := l.auth.Require(caller, authority.Executor); err != nil {
		return err
	}
	if recipient == "" {
		return errs.Validationf("recipient is required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("payout amount must be positive")
	}

	l.mutex.Lock()
	if l.inPayout {
		l.mutex.Unlock()
		return errs.Statef("payout already in progress")
	}
	if l.paid[id] {
		l.mutex.Unlock()
		return errs.Statef("proposal %d already paid", id)
	}
	if l.total.Cmp(amount) < 0 {
		l.mutex.Unlock()
		return errs.Resourcef("insufficient treasury balance")
	}
	t := tier.ForAmount(amount)
	if l.pools[t].Cmp(amount) < 0 {
		l.mutex.Unlock()
		return errs.Resourcef("insufficient %s pool balance", t)
	}

	l.paid[id] = true
	l.pools[t] = new(big.Int).Sub(l.pools[t], amount)
	l.total = new(big.Int).Sub(l.total, amount)
	l.inPayout = true
	l.mutex.Unlock()

	if err := l.out.Transfer(recipient, amount); err != nil {
		l.mutex.Lock()
		delete(l.paid, id)
		l.pools[t] = new(big.Int).Add(l.pools[t], amount)
		l.total = new(big.Int).Add(l.total, amount)
		l.inPayout = false
		l.mutex.Unlock()
		return errs.Transferf("payout for proposal %d failed: %v", id, err)
	}

	l.mutex.Lock()
	l.inPayout = false
	l.mutex.Unlock()

	l.publish(PayoutExecutedEventType, PayoutExecutedEvent{
		ID:        id,
		Recipient: recipient,
		Tier:      t,
		Amount:    new(big.Int).Set(amount),
	})
	return nil
}

// Rebalance overwrites every pool with its cap share of the current total
// treasury. This is a reset, not a transfer between pools: allocated but
// unspent value is discarded in favour of the fresh cap fraction.
// Allocator authority.
func (l *Ledger) Rebalance(caller string) error {
	if err := l.auth.Require(caller, authority.Allocator); err != nil {
		return err
	}

	l.mutex.Lock()
	balances := make(map[tier.Tier]*big.Int, len(l.pools))
	for t := range l.pools {
		share := new(big.Int).Mul(l.total, big.NewInt(l.caps[t]))
		share.Div(share, hundred)
		l.pools[t] = share
		balances[t] = new(big.Int).Set(share)
	}
	l.mutex.Unlock()

	l.publish(FundsRebalancedEventType, FundsRebalancedEvent{Balances: balances})
	return nil
}

// UpdateCap sets a pool's cap percentage. Admin authority.
func (l *Ledger) UpdateCap(caller string, t tier.Tier, capPct int64) error {
	if err := l.auth.Require(caller, authority.Admin); err != nil {
		return err
	}
	if capPct < 1 || capPct > 100 {
		return errs.Validationf("cap percentage must be between 1 and 100")
	}

	l.mutex.Lock()
	l.caps[t] = capPct
	l.mutex.Unlock()

	l.publish(CapUpdatedEventType, CapUpdatedEvent{Tier: t, CapPct: capPct})
	return nil
}

// PoolBalance returns the balance of a tier pool
func (l *Ledger) PoolBalance(t tier.Tier) *big.Int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return new(big.Int).Set(l.pools[t])
}

// Total returns the total treasury balance
func (l *Ledger) Total() *big.Int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return new(big.Int).Set(l.total)
}

// Cap returns the cap percentage of a tier pool
func (l *Ledger) Cap(t tier.Tier) int64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.caps[t]
}

// Paid reports whether a proposal's payout has already happened
func (l *Ledger) Paid(id uint64) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.paid[id]
}

func (l *Ledger) publish(eventType event.Type, data any) {
	if l.events != nil {
		l.events.Publish(eventType, data)
	}
}

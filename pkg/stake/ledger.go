package stake

import (
	"math/big"
	"sync"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
)

const (
	StakeChangedEventType = event.Type("stake.changed")
	PowerChangedEventType = event.Type("power.changed")
)

// StakeChangedEvent reports a new stake balance for an account
type StakeChangedEvent struct {
	Address string
	Stake   *big.Int
}

// PowerChangedEvent reports a new voting power for an account
type PowerChangedEvent struct {
	Address string
	Power   *big.Int
}

// Rail moves deposited value between the external balance rail and the ledger
type Rail interface {
	Debit(address string, amount *big.Int) error
	Credit(address string, amount *big.Int) error
}

// Ledger tracks each account's staked value, the voting power derived from
// it, and the active-vote counters that lock stake while votes are
// outstanding
type Ledger struct {
	stakes      map[string]*big.Int
	activeVotes map[string]int
	totalStaked *big.Int
	minStake    *big.Int
	rail        Rail
	events      *event.Bus
	mutex       sync.RWMutex
}

// NewLedger creates a new stake ledger. rail may be nil when deposits are
// funded out of band.
func NewLedger(rail Rail, minStake *big.Int, events *event.Bus) *Ledger {
	if minStake == nil {
		minStake = big.NewInt(0)
	}
	return &Ledger{
		stakes:      make(map[string]*big.Int),
		activeVotes: make(map[string]int),
		totalStaked: big.NewInt(0),
		minStake:    minStake,
		rail:        rail,
		events:      events,
	}
}

// Deposit stakes value for an account
func (l *Ledger) Deposit(address string, amount *big.Int) error {
	if address == "" {
		return errs.Validationf("address is required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("deposit amount must be positive")
	}
	if l.rail != nil {
		if err := l.rail.Debit(address, amount); err != nil {
			return err
		}
	}

	l.mutex.Lock()
	current, exists := l.stakes[address]
	if !exists {
		current = big.NewInt(0)
	}
	updated := new(big.Int).Add(current, amount)
	l.stakes[address] = updated
	l.totalStaked = new(big.Int).Add(l.totalStaked, amount)
	l.mutex.Unlock()

	l.publishChanged(address, updated)
	return nil
}

// Withdraw unstakes value for an account. Refused while the account has
// votes outstanding on active proposals.
func (l *Ledger) Withdraw(address string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("withdraw amount must be positive")
	}

	l.mutex.Lock()
	if l.activeVotes[address] > 0 {
		l.mutex.Unlock()
		return errs.Resourcef("stake locked: %d active votes outstanding", l.activeVotes[address])
	}
	current, exists := l.stakes[address]
	if !exists || current.Cmp(amount) < 0 {
		l.mutex.Unlock()
		return errs.Resourcef("insufficient stake for %s", address)
	}
	updated := new(big.Int).Sub(current, amount)
	l.stakes[address] = updated
	l.totalStaked = new(big.Int).Sub(l.totalStaked, amount)
	l.mutex.Unlock()

	// Internal state is settled before the outbound credit; a failed credit
	// restores it so the whole withdrawal unwinds.
	if l.rail != nil {
		if err := l.rail.Credit(address, amount); err != nil {
			l.mutex.Lock()
			l.stakes[address] = new(big.Int).Add(updated, amount)
			l.totalStaked = new(big.Int).Add(l.totalStaked, amount)
			l.mutex.Unlock()
			return errs.Transferf("withdraw credit failed: %v", err)
		}
	}

	l.publishChanged(address, updated)
	return nil
}

// StakeOf returns the staked value of an account
func (l *Ledger) StakeOf(address string) *big.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if current, exists := l.stakes[address]; exists {
		return new(big.Int).Set(current)
	}
	return big.NewInt(0)
}

// PowerOf returns the current voting power of an account
func (l *Ledger) PowerOf(address string) *big.Int {
	return VotingPower(l.StakeOf(address))
}

// TotalVotingPower returns the dampened transform of the aggregate staked
// value. Note this is not the sum of individual powers; quorum arithmetic
// uses this aggregate form as its denominator.
func (l *Ledger) TotalVotingPower() *big.Int {
	l.mutex.RLock()
	total := new(big.Int).Set(l.totalStaked)
	l.mutex.RUnlock()

	return VotingPower(total)
}

// TotalStaked returns the aggregate staked value
func (l *Ledger) TotalStaked() *big.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return new(big.Int).Set(l.totalStaked)
}

// Eligible reports whether an account meets the minimum stake to propose
func (l *Ledger) Eligible(address string) bool {
	return l.StakeOf(address).Cmp(l.minStake) >= 0
}

// IncrementActiveVotes records an outstanding vote for an account
func (l *Ledger) IncrementActiveVotes(address string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.activeVotes[address]++
}

// DecrementActiveVotes releases an outstanding vote for an account.
// Decrementing past zero clamps to zero rather than erroring.
func (l *Ledger) DecrementActiveVotes(address string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.activeVotes[address] > 0 {
		l.activeVotes[address]--
	}
}

// ActiveVotes returns the outstanding vote count of an account
func (l *Ledger) ActiveVotes(address string) int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.activeVotes[address]
}

func (l *Ledger) publishChanged(address string, stake *big.Int) {
	if l.events == nil {
		return
	}
	l.events.Publish(StakeChangedEventType, StakeChangedEvent{
		Address: address,
		Stake:   new(big.Int).Set(stake),
	})
	l.events.Publish(PowerChangedEventType, PowerChangedEvent{
		Address: address,
		Power:   VotingPower(stake),
	})
}

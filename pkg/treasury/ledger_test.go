package treasury_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/authority"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/treasury"
)

type captureTransferer struct {
	received map[string]*big.Int
	fail     bool
}

func (t *captureTransferer) Transfer(recipient string, amount *big.Int) error {
	if t.fail {
		return errors.New("rail unavailable")
	}
	if t.received == nil {
		t.received = make(map[string]*big.Int)
	}
	current, exists := t.received[recipient]
	if !exists {
		current = big.NewInt(0)
	}
	t.received[recipient] = new(big.Int).Add(current, amount)
	return nil
}

func newLedger(t *testing.T) (*treasury.Ledger, *captureTransferer, *event.Bus) {
	t.Helper()

	auth := authority.NewRegistry()
	auth.Grant("allocator", authority.Allocator)
	auth.Grant("executor", authority.Executor)
	auth.Grant("admin", authority.Admin)

	events := event.NewBus(nil, nil)
	out := &captureTransferer{}
	return treasury.NewLedger(out, auth, events), out, events
}

func TestDeposit(t *testing.T) {
	ledger, _, _ := newLedger(t)

	require.NoError(t, ledger.Deposit(tier.Units(100)))
	require.NoError(t, ledger.Deposit(tier.Units(50)))
	assert.Equal(t, tier.Units(150), ledger.Total())

	assert.ErrorIs(t, ledger.Deposit(big.NewInt(0)), errs.ErrValidation)
	assert.ErrorIs(t, ledger.Deposit(big.NewInt(-1)), errs.ErrValidation)
	assert.ErrorIs(t, ledger.Deposit(nil), errs.ErrValidation)
}

func TestAllocate(t *testing.T) {
	t.Run("Within Cap", func(t *testing.T) {
		ledger, _, events := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))

		require.NoError(t, ledger.Allocate("allocator", tier.HighConviction, tier.Units(50)))
		assert.Equal(t, tier.Units(50), ledger.PoolBalance(tier.HighConviction))

		allocated := events.HistoryByType(treasury.FundsAllocatedEventType)
		require.Len(t, allocated, 1)
		payload := allocated[0].Data.(treasury.FundsAllocatedEvent)
		assert.Equal(t, tier.HighConviction, payload.Tier)
		assert.Equal(t, tier.Units(50), payload.Balance)
	})

	t.Run("Cap Exceeded", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))

		// operational cap is 20% of 100 units
		err := ledger.Allocate("allocator", tier.Operational, tier.Units(21))
		assert.ErrorIs(t, err, errs.ErrResource)
		assert.Equal(t, big.NewInt(0), ledger.PoolBalance(tier.Operational))

		// cumulative allocations count against the same cap
		require.NoError(t, ledger.Allocate("allocator", tier.Operational, tier.Units(15)))
		err = ledger.Allocate("allocator", tier.Operational, tier.Units(6))
		assert.ErrorIs(t, err, errs.ErrResource)
		require.NoError(t, ledger.Allocate("allocator", tier.Operational, tier.Units(5)))
	})

	t.Run("Allocator Only", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))

		err := ledger.Allocate("mallory", tier.Operational, tier.Units(1))
		assert.ErrorIs(t, err, errs.ErrAuthorization)
	})

	t.Run("Positive Amount", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))

		err := ledger.Allocate("allocator", tier.Operational, big.NewInt(0))
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestPayout(t *testing.T) {
	fund := func(t *testing.T) (*treasury.Ledger, *captureTransferer, *event.Bus) {
		t.Helper()
		ledger, out, events := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))
		require.NoError(t, ledger.Allocate("allocator", tier.HighConviction, tier.Units(50)))
		require.NoError(t, ledger.Allocate("allocator", tier.Experimental, tier.Units(30)))
		require.NoError(t, ledger.Allocate("allocator", tier.Operational, tier.Units(20)))
		return ledger, out, events
	}

	t.Run("Draws From Bracket Pool", func(t *testing.T) {
		ledger, out, events := fund(t)

		// 5 units falls in the experimental bracket
		require.NoError(t, ledger.Payout("executor", 1, "vendor", tier.Units(5)))

		assert.Equal(t, tier.Units(25), ledger.PoolBalance(tier.Experimental))
		assert.Equal(t, tier.Units(50), ledger.PoolBalance(tier.HighConviction))
		assert.Equal(t, tier.Units(95), ledger.Total())
		assert.Equal(t, tier.Units(5), out.received["vendor"])
		assert.True(t, ledger.Paid(1))

		executed := events.HistoryByType(treasury.PayoutExecutedEventType)
		require.Len(t, executed, 1)
		payload := executed[0].Data.(treasury.PayoutExecutedEvent)
		assert.Equal(t, uint64(1), payload.ID)
		assert.Equal(t, tier.Experimental, payload.Tier)
	})

	t.Run("Exactly Once", func(t *testing.T) {
		ledger, out, _ := fund(t)
		require.NoError(t, ledger.Payout("executor", 1, "vendor", tier.Units(5)))

		err := ledger.Payout("executor", 1, "vendor", tier.Units(5))
		assert.ErrorIs(t, err, errs.ErrState)
		assert.Equal(t, tier.Units(5), out.received["vendor"])
		assert.Equal(t, tier.Units(95), ledger.Total())
	})

	t.Run("Insufficient Pool", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))
		require.NoError(t, ledger.Allocate("allocator", tier.Experimental, tier.Units(3)))

		err := ledger.Payout("executor", 1, "vendor", tier.Units(5))
		assert.ErrorIs(t, err, errs.ErrResource)
		assert.False(t, ledger.Paid(1))
	})

	t.Run("Insufficient Treasury", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(3)))

		err := ledger.Payout("executor", 1, "vendor", tier.Units(5))
		assert.ErrorIs(t, err, errs.ErrResource)
	})

	t.Run("Transfer Failure Unwinds", func(t *testing.T) {
		ledger, out, events := fund(t)
		out.fail = true

		err := ledger.Payout("executor", 1, "vendor", tier.Units(5))
		assert.ErrorIs(t, err, errs.ErrTransfer)

		assert.False(t, ledger.Paid(1))
		assert.Equal(t, tier.Units(30), ledger.PoolBalance(tier.Experimental))
		assert.Equal(t, tier.Units(100), ledger.Total())
		assert.Empty(t, events.HistoryByType(treasury.PayoutExecutedEventType))

		// retrying after the rail recovers pays normally
		out.fail = false
		require.NoError(t, ledger.Payout("executor", 1, "vendor", tier.Units(5)))
		assert.True(t, ledger.Paid(1))
	})

	t.Run("Executor Only", func(t *testing.T) {
		ledger, _, _ := fund(t)
		err := ledger.Payout("allocator", 1, "vendor", tier.Units(5))
		assert.ErrorIs(t, err, errs.ErrAuthorization)
	})

	t.Run("Validation", func(t *testing.T) {
		ledger, _, _ := fund(t)
		assert.ErrorIs(t, ledger.Payout("executor", 1, "", tier.Units(5)), errs.ErrValidation)
		assert.ErrorIs(t, ledger.Payout("executor", 1, "vendor", big.NewInt(0)), errs.ErrValidation)
		assert.ErrorIs(t, ledger.Payout("executor", 1, "vendor", nil), errs.ErrValidation)
	})
}

func TestRebalance(t *testing.T) {
	t.Run("Resets Pools To Cap Shares", func(t *testing.T) {
		ledger, _, events := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))
		require.NoError(t, ledger.Allocate("allocator", tier.Operational, tier.Units(5)))

		require.NoError(t, ledger.Rebalance("allocator"))

		assert.Equal(t, tier.Units(50), ledger.PoolBalance(tier.HighConviction))
		assert.Equal(t, tier.Units(30), ledger.PoolBalance(tier.Experimental))
		assert.Equal(t, tier.Units(20), ledger.PoolBalance(tier.Operational))
		require.Len(t, events.HistoryByType(treasury.FundsRebalancedEventType), 1)
	})

	t.Run("Tracks Total After Payouts", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		require.NoError(t, ledger.Deposit(tier.Units(100)))
		require.NoError(t, ledger.Allocate("allocator", tier.HighConviction, tier.Units(50)))
		require.NoError(t, ledger.Payout("executor", 1, "vendor", tier.Units(20)))

		require.NoError(t, ledger.Rebalance("allocator"))

		// shares of the remaining 80 units
		assert.Equal(t, tier.Units(40), ledger.PoolBalance(tier.HighConviction))
		assert.Equal(t, tier.Units(24), ledger.PoolBalance(tier.Experimental))
		assert.Equal(t, tier.Units(16), ledger.PoolBalance(tier.Operational))
	})

	t.Run("Allocator Only", func(t *testing.T) {
		ledger, _, _ := newLedger(t)
		assert.ErrorIs(t, ledger.Rebalance("admin"), errs.ErrAuthorization)
	})
}

func TestUpdateCap(t *testing.T) {
	ledger, _, events := newLedger(t)
	require.NoError(t, ledger.Deposit(tier.Units(100)))

	t.Run("Admin Only", func(t *testing.T) {
		err := ledger.UpdateCap("allocator", tier.Operational, 40)
		assert.ErrorIs(t, err, errs.ErrAuthorization)
	})

	t.Run("Bounds", func(t *testing.T) {
		assert.ErrorIs(t, ledger.UpdateCap("admin", tier.Operational, 0), errs.ErrValidation)
		assert.ErrorIs(t, ledger.UpdateCap("admin", tier.Operational, 101), errs.ErrValidation)
	})

	t.Run("Raises Allocation Room", func(t *testing.T) {
		err := ledger.Allocate("allocator", tier.Operational, tier.Units(40))
		assert.ErrorIs(t, err, errs.ErrResource)

		require.NoError(t, ledger.UpdateCap("admin", tier.Operational, 40))
		assert.Equal(t, int64(40), ledger.Cap(tier.Operational))
		require.NoError(t, ledger.Allocate("allocator", tier.Operational, tier.Units(40)))

		require.Len(t, events.HistoryByType(treasury.CapUpdatedEventType), 1)
	})
}

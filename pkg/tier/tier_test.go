package tier_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
)

func TestForAmount(t *testing.T) {
	t.Run("Bracket Edges", func(t *testing.T) {
		// exactly 10 units is Experimental, not HighConviction
		assert.Equal(t, tier.Experimental, tier.ForAmount(tier.Units(10)))
		assert.Equal(t, tier.HighConviction, tier.ForAmount(new(big.Int).Add(tier.Units(10), big.NewInt(1))))

		// exactly 1 unit is Experimental, not Operational
		assert.Equal(t, tier.Experimental, tier.ForAmount(tier.Units(1)))
		assert.Equal(t, tier.Operational, tier.ForAmount(new(big.Int).Sub(tier.Unit, big.NewInt(1))))

		assert.Equal(t, tier.HighConviction, tier.ForAmount(tier.Units(1000)))
		assert.Equal(t, tier.Operational, tier.ForAmount(big.NewInt(1)))
	})
}

func TestInBracket(t *testing.T) {
	assert.False(t, tier.InBracket(tier.HighConviction, tier.Units(10)))
	assert.True(t, tier.InBracket(tier.Experimental, tier.Units(10)))
	assert.True(t, tier.InBracket(tier.Experimental, tier.Units(1)))
	assert.False(t, tier.InBracket(tier.Operational, tier.Units(1)))
	assert.True(t, tier.InBracket(tier.Operational, big.NewInt(500_000)))

	assert.False(t, tier.InBracket(tier.Operational, big.NewInt(0)))
	assert.False(t, tier.InBracket(tier.Operational, big.NewInt(-1)))
	assert.False(t, tier.InBracket(tier.Operational, nil))
}

func TestParamsFor(t *testing.T) {
	high := tier.ParamsFor(tier.HighConviction)
	assert.Equal(t, int64(30), high.QuorumPct)
	assert.Equal(t, int64(66), high.ThresholdPct)
	assert.Equal(t, int64(7), high.DelayPeriods)

	exp := tier.ParamsFor(tier.Experimental)
	assert.Equal(t, int64(20), exp.QuorumPct)
	assert.Equal(t, int64(60), exp.ThresholdPct)
	assert.Equal(t, int64(3), exp.DelayPeriods)

	ops := tier.ParamsFor(tier.Operational)
	assert.Equal(t, int64(10), ops.QuorumPct)
	assert.Equal(t, int64(51), ops.ThresholdPct)
	assert.Equal(t, int64(1), ops.DelayPeriods)
}

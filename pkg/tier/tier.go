package tier

import "math/big"

// Tier represents the risk bracket of a treasury transfer
type Tier int

const (
	HighConviction Tier = iota
	Experimental
	Operational
)

// String returns the tier name
func (t Tier) String() string {
	switch t {
	case HighConviction:
		return "high_conviction"
	case Experimental:
		return "experimental"
	case Operational:
		return "operational"
	default:
		return "unknown"
	}
}

// Unit is the number of base units in one display unit. All amounts in the
// system are carried in base units, so the Operational bracket (< 1 unit)
// holds sub-unit amounts.
var Unit = big.NewInt(1_000_000)

// Params holds the governance parameters of a tier
type Params struct {
	QuorumPct    int64
	ThresholdPct int64
	DelayPeriods int64
}

var params = map[Tier]Params{
	HighConviction: {QuorumPct: 30, ThresholdPct: 66, DelayPeriods: 7},
	Experimental:   {QuorumPct: 20, ThresholdPct: 60, DelayPeriods: 3},
	Operational:    {QuorumPct: 10, ThresholdPct: 51, DelayPeriods: 1},
}

// ParamsFor returns the quorum, threshold and delay parameters of a tier
func ParamsFor(t Tier) Params {
	return params[t]
}

// Units returns n display units in base units
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

// ForAmount derives the tier of an amount. Proposal creation and treasury
// payout must agree on the bracket, so both go through this one function.
func ForAmount(amount *big.Int) Tier {
	if amount.Cmp(Units(10)) > 0 {
		return HighConviction
	}
	if amount.Cmp(Unit) >= 0 {
		return Experimental
	}
	return Operational
}

// InBracket reports whether amount falls strictly inside the tier's bracket.
// Amounts must be positive; zero and negative amounts belong to no bracket.
func InBracket(t Tier, amount *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	return ForAmount(amount) == t
}

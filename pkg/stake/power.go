package stake

import "math/big"

var (
	one  = big.NewInt(1)
	four = big.NewInt(4)
)

// VotingPower returns the floor integer square root of a stake, the dampened
// vote weight. The Babylonian iteration here is load-bearing: quorum and
// threshold arithmetic depend on every deployment computing the exact same
// value for the same stake.
func VotingPower(stake *big.Int) *big.Int {
	if stake == nil || stake.Sign() <= 0 {
		return big.NewInt(0)
	}
	// 1, 2 and 3 all floor to 1
	if stake.Cmp(four) < 0 {
		return big.NewInt(1)
	}

	y := new(big.Int).Set(stake)
	z := new(big.Int).Add(stake, one)
	z.Rsh(z, 1)
	for z.Cmp(y) < 0 {
		y.Set(z)
		z.Div(stake, z)
		z.Add(z, y)
		z.Rsh(z, 1)
	}
	return y
}

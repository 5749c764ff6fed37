package project

import "math/big"

func sameInt(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func intOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func derefUint(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

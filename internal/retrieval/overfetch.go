package retrieval

import "math"

// OverfetchPolicy decides how many global candidates to pull before scope
// filtering. The index is shared by every scope, so the n nearest vectors
// overall may contain few or none from the queried scope.
type OverfetchPolicy struct {
	Fixed  int
	Factor int
}

// DefaultOverfetch pulls max(20, 4n) candidates.
func DefaultOverfetch() OverfetchPolicy {
	return OverfetchPolicy{Fixed: 20, Factor: 4}
}

// K returns the candidate count for a request of n results. It is always
// greater than n, saturating at math.MaxInt.
func (p OverfetchPolicy) K(n int) int {
	if n >= math.MaxInt-1 {
		return math.MaxInt
	}
	if p.Factor > 0 && n > (math.MaxInt-1)/p.Factor {
		return math.MaxInt
	}
	k := max(p.Fixed, p.Factor*n)
	if k <= n {
		k = n + 1
	}
	return k
}

func (p OverfetchPolicy) isZero() bool { return p.Fixed <= 0 && p.Factor <= 0 }

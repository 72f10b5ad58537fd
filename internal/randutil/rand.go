// Package randutil provides deterministic random sources for tests and
// benchmarks.
package randutil

import (
	rand "math/rand/v2"

	"github.com/lox/spotsolve/poker"
)

// New returns a generator whose sequence depends only on seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+0x9e3779b97f4a7c15)))
}

func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	return x ^ x>>31
}

// Reach returns n probabilities in [0, 1). Roughly one in eight is zero so
// that callers also cover unreachable hands.
func Reach(r *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if r.IntN(8) != 0 {
			out[i] = r.Float64()
		}
	}
	return out
}

// Cards deals k distinct cards that are not in dead.
func Cards(r *rand.Rand, k int, dead poker.Hand) poker.Hand {
	var h poker.Hand
	for h.CountCards() < k {
		c := poker.CardFromIndex(r.IntN(52))
		if dead.HasCard(c) || h.HasCard(c) {
			continue
		}
		h.AddCard(c)
	}
	return h
}

package solver

import (
	"math"
	"slices"
)

const mergeEpsilon = 1e-12

// sizes resolves the configured sizes at s into sorted, distinct street
// totals to bet or raise to.
func (b *treeBuilder) sizes(s betState) []int32 {
	cfg := b.cfg
	p, q := s.player, 1-s.player
	me := s.contrib[p] - s.streetStart
	opp := s.contrib[q] - s.streetStart
	facing := opp - me
	maxTo := cfg.EffectiveStack - s.streetStart
	if maxTo <= opp {
		return nil
	}

	pot := float64(cfg.StartingPot + s.contrib[0] + s.contrib[1])
	potAfterCall := pot + float64(facing)
	remaining := float64(cfg.EffectiveStack - s.contrib[q])
	streets := int(StreetRiver-s.street) + 1

	var options []BetSize
	minTo := int32(1)
	if facing > 0 {
		options = cfg.StreetSizes(s.street, p).Raise
		minTo = opp + max(s.lastIncr, 1)
	} else {
		options = cfg.StreetSizes(s.street, p).Bet
		if donk := cfg.StreetDonkSizes(s.street); donk != nil && p == OOP && s.acted == 0 && s.prevAggressor == IP {
			options = donk
		}
	}
	if len(options) == 0 {
		return nil
	}

	var amounts []int32
	for _, size := range options {
		var to float64
		switch size.Kind {
		case SizePot:
			to = float64(opp) + size.Value*potAfterCall
		case SizeGeometric:
			to = float64(opp) + geometricRatio(streets, remaining, potAfterCall)*potAfterCall
		case SizeAllIn:
			to = float64(maxTo)
		case SizePrevBet:
			if facing <= 0 {
				continue
			}
			to = size.Value * float64(opp)
		}

		amount := clamp32(math.Round(to), minTo, maxTo)
		afterCall := float64(cfg.StartingPot) + 2*float64(s.streetStart+amount)
		left := float64(maxTo - amount)
		if left <= cfg.ForceAllInThreshold*afterCall {
			amount = maxTo
		}
		amounts = append(amounts, amount)
	}

	slices.Sort(amounts)
	amounts = slices.Compact(amounts)

	ratio := func(to int32) float64 { return float64(to-opp) / potAfterCall }
	if amounts[len(amounts)-1] != maxTo && ratio(maxTo) <= cfg.AddAllInThreshold {
		amounts = append(amounts, maxTo)
	}
	return mergeSizes(amounts, ratio, cfg.MergingThreshold)
}

// mergeSizes drops sizes too close to the next larger kept size. A size with
// pot ratio r survives only if (1+r)(1+threshold) < 1+r_kept.
func mergeSizes(amounts []int32, ratio func(int32) float64, threshold float64) []int32 {
	if threshold <= 0 || len(amounts) < 2 {
		return amounts
	}
	kept := []int32{amounts[len(amounts)-1]}
	cur := ratio(kept[0])
	for i := len(amounts) - 2; i >= 0; i-- {
		r := ratio(amounts[i])
		limit := (cur - threshold) / (1 + threshold)
		if r < limit*(1-mergeEpsilon) {
			kept = append(kept, amounts[i])
			cur = r
		}
	}
	slices.Reverse(kept)
	return kept
}

// geometricRatio is the pot fraction that, bet and called on each of the
// given streets, commits exactly stack chips.
func geometricRatio(streets int, stack, pot float64) float64 {
	if streets < 1 || pot <= 0 {
		return 0
	}
	return (math.Pow(1+2*stack/pot, 1/float64(streets)) - 1) / 2
}

func clamp32(v float64, lo, hi int32) int32 {
	switch {
	case v < float64(lo):
		return min(lo, hi)
	case v > float64(hi):
		return hi
	default:
		return int32(v)
	}
}

package poker

import (
	"fmt"
	"math/bits"
	"slices"
)

// HandRank orders made hands. Lower values are stronger, so 0 is a royal
// flush and WorstRank is seven-high.
type HandRank uint16

// Category is the class of a made hand, from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Unknown"
}

// Number of distinct ranks within each category.
const (
	straightFlushCount = 10
	fourOfAKindCount   = 13 * 12
	fullHouseCount     = 13 * 12
	flushCount         = 1277
	straightCount      = 10
	threeOfAKindCount  = 13 * 66
	twoPairCount       = 78 * 11
	onePairCount       = 13 * 220
	highCardCount      = 1277
)

const (
	baseStraightFlush = 0
	baseFourOfAKind   = baseStraightFlush + straightFlushCount
	baseFullHouse     = baseFourOfAKind + fourOfAKindCount
	baseFlush         = baseFullHouse + fullHouseCount
	baseStraight      = baseFlush + flushCount
	baseThreeOfAKind  = baseStraight + straightCount
	baseTwoPair       = baseThreeOfAKind + threeOfAKindCount
	baseOnePair       = baseTwoPair + twoPairCount
	baseHighCard      = baseOnePair + onePairCount

	// WorstRank is the weakest possible hand.
	WorstRank HandRank = baseHighCard + highCardCount - 1
)

// categoryStart lists the first rank of each category, strongest first.
var categoryStart = [...]struct {
	base     HandRank
	category Category
}{
	{baseStraightFlush, StraightFlush},
	{baseFourOfAKind, FourOfAKind},
	{baseFullHouse, FullHouse},
	{baseFlush, Flush},
	{baseStraight, Straight},
	{baseThreeOfAKind, ThreeOfAKind},
	{baseTwoPair, TwoPair},
	{baseOnePair, Pair},
	{baseHighCard, HighCard},
}

// Category returns the class of hand the rank belongs to.
func (r HandRank) Category() Category {
	for i := len(categoryStart) - 1; i > 0; i-- {
		if r >= categoryStart[i].base {
			return categoryStart[i].category
		}
	}
	return StraightFlush
}

func (r HandRank) String() string { return r.Category().String() }

// Evaluate ranks the best five-card hand within h, which must hold between
// five and seven cards.
func Evaluate(h Hand) (HandRank, error) {
	if n := h.CountCards(); n < 5 || n > 7 {
		return WorstRank, fmt.Errorf("cannot evaluate %d cards", n)
	}
	return evaluate(h), nil
}

// Evaluate7Cards ranks a hand of exactly seven cards, typically two hole
// cards plus a complete board. Other sizes return WorstRank.
func Evaluate7Cards(h Hand) HandRank {
	if h.CountCards() != 7 {
		return WorstRank
	}
	return evaluate(h)
}

func evaluate(h Hand) HandRank {
	var suits [4]uint16
	var ranks uint16
	for s := range suits {
		suits[s] = h.GetSuitMask(uint8(s))
		ranks |= suits[s]
	}

	// At most one suit can hold five of seven cards.
	for _, m := range suits {
		if bits.OnesCount16(m) < 5 {
			continue
		}
		if high, ok := straightHigh(m); ok {
			return HandRank(baseStraightFlush + straightCount - 1 - straightIndex(high))
		}
		top := topRanks(m, 0, 5)
		return HandRank(baseFlush + flushCount - 1 - fiveCardIndex(top))
	}

	s0, s1, s2, s3 := suits[0], suits[1], suits[2], suits[3]
	quads := s0 & s1 & s2 & s3
	threePlus := (s0 & s1 & s2) | (s0 & s1 & s3) | (s0 & s2 & s3) | (s1 & s2 & s3)
	trips := threePlus &^ quads
	pairs := ((s0 & s1) | (s0 & s2) | (s0 & s3) | (s1 & s2) | (s1 & s3) | (s2 & s3)) &^ threePlus

	if quads != 0 {
		q := highBit(quads)
		kicker := highBit(ranks &^ (1 << q))
		idx := uint16(q)*12 + ordinal(kicker, 1<<q)
		return HandRank(baseFourOfAKind + fourOfAKindCount - 1 - idx)
	}

	if trips != 0 {
		t := highBit(trips)
		if rest := pairs | trips&^(1<<t); rest != 0 {
			p := highBit(rest)
			idx := uint16(t)*12 + ordinal(p, 1<<t)
			return HandRank(baseFullHouse + fullHouseCount - 1 - idx)
		}
	}

	if high, ok := straightHigh(ranks); ok {
		return HandRank(baseStraight + straightCount - 1 - straightIndex(high))
	}

	if trips != 0 {
		t := highBit(trips)
		used := uint16(1) << t
		kickers := compress(topRanks(ranks, used, 2), used)
		idx := uint16(t)*66 + comboIndex12of2[kickers]
		return HandRank(baseThreeOfAKind + threeOfAKindCount - 1 - idx)
	}

	if pairs != 0 {
		hi := highBit(pairs)
		if rest := pairs &^ (1 << hi); rest != 0 {
			lo := highBit(rest)
			used := uint16(1)<<hi | uint16(1)<<lo
			kicker := highBit(ranks &^ used)
			idx := comboIndex13of2[used]*11 + ordinal(kicker, used)
			return HandRank(baseTwoPair + twoPairCount - 1 - idx)
		}
		used := uint16(1) << hi
		kickers := compress(topRanks(ranks, used, 3), used)
		idx := uint16(hi)*220 + comboIndex12of3[kickers]
		return HandRank(baseOnePair + onePairCount - 1 - idx)
	}

	return HandRank(baseHighCard + highCardCount - 1 - fiveCardIndex(topRanks(ranks, 0, 5)))
}

// highBit returns the highest rank set in a non-empty mask.
func highBit(mask uint16) uint8 {
	return uint8(bits.Len16(mask) - 1)
}

// topRanks keeps the n highest ranks of mask that are not in used.
func topRanks(mask, used uint16, n int) uint16 {
	mask &^= used
	var out uint16
	for range n {
		if mask == 0 {
			break
		}
		top := uint16(1) << highBit(mask)
		out |= top
		mask &^= top
	}
	return out
}

// ordinal is rank's position among the ranks not in used.
func ordinal(rank uint8, used uint16) uint16 {
	below := used & (1<<rank - 1)
	return uint16(rank) - uint16(bits.OnesCount16(below))
}

// compress maps each rank in mask to its ordinal among ranks not in used.
func compress(mask, used uint16) uint16 {
	var out uint16
	for m := mask; m != 0; m &= m - 1 {
		r := uint8(bits.TrailingZeros16(m))
		out |= 1 << ordinal(r, used)
	}
	return out
}

// fiveCardIndex ranks five distinct non-straight ranks from 0 (7-5-4-3-2)
// upwards.
func fiveCardIndex(mask uint16) uint16 {
	idx := comboIndex13of5[mask]
	var skipped uint16
	for _, s := range straightCombos {
		if idx <= s {
			break
		}
		skipped++
	}
	return idx - skipped
}

// straightHigh returns the top rank of the best straight in mask. A wheel
// reports the five (rank 3).
func straightHigh(mask uint16) (uint8, bool) {
	mask &= 0x1FFF
	if run := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4); run != 0 {
		return highBit(run) + 4, true
	}
	const wheel = 0x100F
	if mask&wheel == wheel {
		return 3, true
	}
	return 0, false
}

// straightIndex orders straights from the wheel (0) to broadway (9).
func straightIndex(high uint8) uint16 {
	return uint16(high - 3)
}

var comboIndex13of5 = combinationIndex(13, 5)
var comboIndex13of2 = combinationIndex(13, 2)
var comboIndex12of2 = combinationIndex(12, 2)
var comboIndex12of3 = combinationIndex(12, 3)

// combinationIndex numbers every k-subset of n ranks in colexicographic
// order, indexed by bit mask. Subsets compare by their highest member first,
// which is how kickers are compared.
func combinationIndex(n, k int) []uint16 {
	var binom [14][6]uint16
	for i := range binom {
		binom[i][0] = 1
		for j := 1; j < len(binom[i]) && i > 0; j++ {
			binom[i][j] = binom[i-1][j-1] + binom[i-1][j]
		}
	}

	table := make([]uint16, 1<<n)
	for mask := range 1 << n {
		if bits.OnesCount16(uint16(mask)) != k {
			continue
		}
		var idx uint16
		i := 1
		for m := uint16(mask); m != 0; m &= m - 1 {
			idx += binom[bits.TrailingZeros16(m)][i]
			i++
		}
		table[mask] = idx
	}
	return table
}

// straightCombos holds the five-card indices of the ten straights, ascending.
var straightCombos = func() [10]uint16 {
	var out [10]uint16
	out[0] = comboIndex13of5[0x100F]
	for high := 4; high <= 12; high++ {
		out[high-3] = comboIndex13of5[uint16(0x1F)<<(high-4)]
	}
	slices.Sort(out[:])
	return out
}()

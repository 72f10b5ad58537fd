package solver

import "math"

const int16Max = math.MaxInt16

// nodeStore holds cumulative regrets and strategy weights for one decision
// node, laid out action-major. Compressed stores quantise each array to int16
// with a per-array scale.
type nodeStore struct {
	actions int
	hands   int

	regret   []float32
	strategy []float32

	regret16      []int16
	strategy16    []int16
	regretScale   float32
	strategyScale float32
}

func newNodeStore(actions, hands int, compressed bool) *nodeStore {
	s := &nodeStore{actions: actions, hands: hands}
	n := actions * hands
	if compressed {
		s.regret16 = make([]int16, n)
		s.strategy16 = make([]int16, n)
	} else {
		s.regret = make([]float32, n)
		s.strategy = make([]float32, n)
	}
	return s
}

func (s *nodeStore) compressed() bool { return s.regret16 != nil }

func (s *nodeStore) loadRegret(dst []float64) {
	if s.compressed() {
		decode16(s.regret16, s.regretScale, dst)
		return
	}
	decode32(s.regret, dst)
}

func (s *nodeStore) storeRegret(src []float64) {
	if s.compressed() {
		s.regretScale = encode16(src, s.regret16)
		return
	}
	encode32(src, s.regret)
}

func (s *nodeStore) loadStrategy(dst []float64) {
	if s.compressed() {
		decode16(s.strategy16, s.strategyScale, dst)
		return
	}
	decode32(s.strategy, dst)
}

func (s *nodeStore) storeStrategy(src []float64) {
	if s.compressed() {
		s.strategyScale = encode16(src, s.strategy16)
		return
	}
	encode32(src, s.strategy)
}

// averageStrategy returns the normalised average strategy.
func (s *nodeStore) averageStrategy() []float64 {
	sum := make([]float64, s.actions*s.hands)
	s.loadStrategy(sum)
	out := make([]float64, len(sum))
	normalise(sum, out, s.actions, s.hands)
	return out
}

func storeBytes(actions, hands int, compressed bool) uint64 {
	n := uint64(actions) * uint64(hands)
	if compressed {
		return 2*n*2 + 8
	}
	return 2 * n * 4
}

func decode32(src []float32, dst []float64) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}

func encode32(src []float64, dst []float32) {
	for i, v := range src {
		dst[i] = float32(v)
	}
}

func decode16(src []int16, scale float32, dst []float64) {
	step := float64(scale)
	for i, v := range src {
		dst[i] = float64(v) * step
	}
}

// encode16 quantises src into dst and returns the scale of one unit.
func encode16(src []float64, dst []int16) float32 {
	peak := 0.0
	for _, v := range src {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		clear(dst)
		return 0
	}
	step := peak / int16Max
	for i, v := range src {
		dst[i] = int16(math.Round(v / step))
	}
	return float32(step)
}

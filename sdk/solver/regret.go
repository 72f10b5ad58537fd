package solver

import "math"

// Street enumerates the betting round within a Texas Hold'em hand.
type Street uint8

const (
	StreetPreflop Street = iota
	StreetFlop
	StreetTurn
	StreetRiver
)

func (s Street) String() string {
	switch s {
	case StreetPreflop:
		return "preflop"
	case StreetFlop:
		return "flop"
	case StreetTurn:
		return "turn"
	case StreetRiver:
		return "river"
	default:
		return "unknown"
	}
}

// Discounted CFR parameters.
const (
	dcfrAlpha = 1.5
	dcfrBeta  = 0.5
	dcfrGamma = 3.0
)

// discount holds the multipliers applied to cumulative values before an
// iteration's update.
type discount struct {
	positive float64
	negative float64
	strategy float64
}

// discountFor returns the multipliers for zero-based iteration t.
func discountFor(t int) discount {
	ft := float64(t)
	pa := math.Pow(ft, dcfrAlpha)
	nb := math.Pow(ft, dcfrBeta)
	return discount{
		positive: pa / (pa + 1),
		negative: nb / (nb + 1),
		strategy: math.Pow(ft/(ft+1), dcfrGamma),
	}
}

// regretMatch writes the current strategy into strategy. Both slices are laid
// out action-major: index a*hands + h. Hands with no positive regret play
// uniformly.
func regretMatch(regret, strategy []float64, actions, hands int) {
	for h := 0; h < hands; h++ {
		total := 0.0
		for a := 0; a < actions; a++ {
			v := regret[a*hands+h]
			if v > 0 {
				strategy[a*hands+h] = v
				total += v
			} else {
				strategy[a*hands+h] = 0
			}
		}
		if total <= 0 {
			u := 1.0 / float64(actions)
			for a := 0; a < actions; a++ {
				strategy[a*hands+h] = u
			}
			continue
		}
		for a := 0; a < actions; a++ {
			strategy[a*hands+h] /= total
		}
	}
}

// normalise turns cumulative strategy weights into an average strategy using
// the same layout and fallback as regretMatch.
func normalise(sum, out []float64, actions, hands int) {
	for h := 0; h < hands; h++ {
		total := 0.0
		for a := 0; a < actions; a++ {
			total += sum[a*hands+h]
		}
		for a := 0; a < actions; a++ {
			if total > 0 {
				out[a*hands+h] = sum[a*hands+h] / total
			} else {
				out[a*hands+h] = 1.0 / float64(actions)
			}
		}
	}
}

// applyRegret discounts cumulative regrets and adds the instantaneous regret
// of each action against the node value.
func applyRegret(cum, actionValues, nodeValue []float64, actions, hands int, d discount) {
	for a := 0; a < actions; a++ {
		row := cum[a*hands : (a+1)*hands]
		vals := actionValues[a*hands : (a+1)*hands]
		for h := range row {
			r := row[h]
			if r > 0 {
				r *= d.positive
			} else {
				r *= d.negative
			}
			row[h] = r + vals[h] - nodeValue[h]
		}
	}
}

// applyStrategy discounts cumulative strategy weights and adds the current
// strategy weighted by the acting player's reach.
func applyStrategy(cum, strategy, reach []float64, actions, hands int, d discount) {
	for a := 0; a < actions; a++ {
		row := cum[a*hands : (a+1)*hands]
		cur := strategy[a*hands : (a+1)*hands]
		for h := range row {
			row[h] = row[h]*d.strategy + cur[h]*reach[h]
		}
	}
}

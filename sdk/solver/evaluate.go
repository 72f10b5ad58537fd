package solver

import "math"

// payoffs returns what player p nets at a terminal node: when p wins, when p
// loses and when the pot is split. Each player is treated as having put in
// half the starting pot, and rake is taken from the final pot.
func (g *Game) payoffs(n *ActionNode, p int) (win, lose, tie float64) {
	cfg := g.tree.Config
	total := float64(cfg.StartingPot + n.Contrib[0] + n.Contrib[1])
	rake := math.Min(total*cfg.RakeRate, cfg.RakeCap)
	stake := float64(cfg.StartingPot)/2 + float64(n.Contrib[p])
	return total - rake - stake, -stake, (total-rake)/2 - stake
}

// reachSums returns the total opponent reach and its per-card totals.
func reachSums(cards [][2]uint8, reach []float64) (total float64, perCard [deckSize]float64) {
	for i, r := range reach {
		if r == 0 {
			continue
		}
		total += r
		perCard[cards[i][0]] += r
		perCard[cards[i][1]] += r
	}
	return total, perCard
}

// compatible is the opponent reach that shares no card with hand i of p.
func (g *Game) compatible(p, i int, total float64, perCard *[deckSize]float64, oppReach []float64) float64 {
	c := g.handCards[p][i]
	sum := total - perCard[c[0]] - perCard[c[1]]
	if j := g.same[p][i]; j >= 0 {
		sum += oppReach[j]
	}
	return sum
}

func (g *Game) foldValues(n *gameNode, p int, oppReach, out []float64) {
	win, lose, _ := g.payoffs(n.node, p)
	payoff := win
	if n.node.Player == p {
		payoff = lose
	}

	total, perCard := reachSums(g.handCards[1-p], oppReach)
	for i := range g.handCards[p] {
		out[i] = payoff * g.compatible(p, i, total, &perCard, oppReach)
	}
}

// showdownValues sweeps both players' hands in strength order, so the
// opponent reach beating, losing to and tying each hand is found in linear
// time once the table is sorted.
func (g *Game) showdownValues(n *gameNode, p int, oppReach, out []float64) {
	q := 1 - p
	t := n.showdown
	win, lose, tie := g.payoffs(n.node, p)

	oppCards := g.handCards[q]
	myRank, oppRank := t.rank[p], t.rank[q]
	myOrder, oppOrder := t.order[p], t.order[q]

	// First pass: out holds the reach of strictly weaker opponent hands.
	var total float64
	var perCard [deckSize]float64
	j := 0
	for _, i := range myOrder {
		r := myRank[i]
		for j < len(oppOrder) && oppRank[oppOrder[j]] > r {
			o := oppOrder[j]
			if w := oppReach[o]; w != 0 {
				total += w
				perCard[oppCards[o][0]] += w
				perCard[oppCards[o][1]] += w
			}
			j++
		}
		c := g.handCards[p][i]
		out[i] = total - perCard[c[0]] - perCard[c[1]]
	}

	all, allCards := reachSums(oppCards, oppReach)

	// Second pass: strictly stronger hands, then the remainder ties.
	total = 0
	perCard = [deckSize]float64{}
	j = len(oppOrder) - 1
	for k := len(myOrder) - 1; k >= 0; k-- {
		i := myOrder[k]
		r := myRank[i]
		for j >= 0 && oppRank[oppOrder[j]] < r {
			o := oppOrder[j]
			if w := oppReach[o]; w != 0 {
				total += w
				perCard[oppCards[o][0]] += w
				perCard[oppCards[o][1]] += w
			}
			j--
		}
		c := g.handCards[p][i]
		weaker := out[i]
		stronger := total - perCard[c[0]] - perCard[c[1]]
		split := g.compatible(p, int(i), all, &allCards, oppReach) - weaker - stronger
		out[i] = win*weaker + lose*stronger + tie*split
	}
}

package solver

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/lox/spotsolve/poker"
)

type walkMode uint8

const (
	// modeTrain plays current strategies and updates the traverser's nodes.
	modeTrain walkMode = iota
	// modeBestResponse maximises the traverser's value against the
	// opponent's average strategy.
	modeBestResponse
	// modeAverage plays average strategies for both players.
	modeAverage
)

// traversal computes counterfactual values for one player over the whole
// game. Values are vectors over that player's hands.
type traversal struct {
	g        *Game
	ctx      context.Context
	mode     walkMode
	player   int
	discount discount
	threads  int
}

// walk fills out with the traverser's counterfactual values at n. reach holds
// both players' reach probabilities. The first chance node below the root is
// fanned out across threads when parallel is set.
func (tr *traversal) walk(n *gameNode, reach [2][]float64, out []float64, parallel bool) error {
	p := tr.player
	switch n.node.Kind {
	case NodeFold:
		tr.g.foldValues(n, p, reach[1-p], out)
		return nil
	case NodeShowdown:
		tr.g.showdownValues(n, p, reach[1-p], out)
		return nil
	case NodeChance:
		return tr.chance(n, reach, out, parallel)
	default:
		if n.node.Player == p {
			return tr.own(n, reach, out, parallel)
		}
		return tr.opponent(n, reach, out, parallel)
	}
}

func (tr *traversal) chance(n *gameNode, reach [2][]float64, out []float64, parallel bool) error {
	if err := tr.ctx.Err(); err != nil {
		return err
	}
	p := tr.player
	// Each compatible pair of hands sees the same number of possible cards.
	factor := 1 / float64(deckSize-n.board.CountCards()-4)
	results := make([][]float64, len(n.cards))

	run := func(i int) error {
		card := n.cards[i]
		var child [2][]float64
		for pl := range 2 {
			child[pl] = tr.g.removeCard(pl, card, reach[pl])
		}
		vals := make([]float64, len(out))
		if err := tr.walk(n.children[i], child, vals, false); err != nil {
			return err
		}
		tr.g.zeroBlocked(p, card, vals)
		results[i] = vals
		return nil
	}

	if parallel && tr.threads > 1 {
		var eg errgroup.Group
		eg.SetLimit(tr.threads)
		for i := range n.cards {
			eg.Go(func() error { return run(i) })
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	} else {
		for i := range n.cards {
			if err := run(i); err != nil {
				return err
			}
		}
	}

	clear(out)
	for _, vals := range results {
		for h, v := range vals {
			out[h] += v * factor
		}
	}
	return nil
}

func (tr *traversal) own(n *gameNode, reach [2][]float64, out []float64, parallel bool) error {
	p := tr.player
	store := n.store
	actions, hands := store.actions, store.hands

	var strategy []float64
	switch tr.mode {
	case modeTrain:
		regret := make([]float64, actions*hands)
		store.loadRegret(regret)
		strategy = make([]float64, actions*hands)
		regretMatch(regret, strategy, actions, hands)
	case modeAverage:
		strategy = store.averageStrategy()
	}

	values := make([]float64, actions*hands)
	for a := range actions {
		child := reach
		if strategy != nil {
			child[p] = scaled(reach[p], strategy[a*hands:(a+1)*hands])
		}
		if err := tr.walk(n.children[a], child, values[a*hands:(a+1)*hands], parallel); err != nil {
			return err
		}
	}

	switch tr.mode {
	case modeBestResponse:
		for h := range hands {
			best := values[h]
			for a := 1; a < actions; a++ {
				best = max(best, values[a*hands+h])
			}
			out[h] = best
		}
		return nil
	default:
		clear(out)
		for a := range actions {
			for h := range hands {
				out[h] += strategy[a*hands+h] * values[a*hands+h]
			}
		}
	}

	if tr.mode == modeTrain {
		regret := make([]float64, actions*hands)
		store.loadRegret(regret)
		applyRegret(regret, values, out, actions, hands, tr.discount)
		store.storeRegret(regret)

		cum := make([]float64, actions*hands)
		store.loadStrategy(cum)
		applyStrategy(cum, strategy, reach[p], actions, hands, tr.discount)
		store.storeStrategy(cum)
	}
	return nil
}

func (tr *traversal) opponent(n *gameNode, reach [2][]float64, out []float64, parallel bool) error {
	q := 1 - tr.player
	store := n.store
	actions, hands := store.actions, store.hands

	var strategy []float64
	if tr.mode == modeTrain {
		regret := make([]float64, actions*hands)
		store.loadRegret(regret)
		strategy = make([]float64, actions*hands)
		regretMatch(regret, strategy, actions, hands)
	} else {
		strategy = store.averageStrategy()
	}

	clear(out)
	vals := make([]float64, len(out))
	for a := range actions {
		child := reach
		child[q] = scaled(reach[q], strategy[a*hands:(a+1)*hands])
		if err := tr.walk(n.children[a], child, vals, parallel); err != nil {
			return err
		}
		for h, v := range vals {
			out[h] += v
		}
	}
	return nil
}

func scaled(reach, weights []float64) []float64 {
	out := make([]float64, len(reach))
	for i, r := range reach {
		out[i] = r * weights[i]
	}
	return out
}

// removeCard copies reach with every hand holding card zeroed.
func (g *Game) removeCard(p int, card poker.Card, reach []float64) []float64 {
	out := slices.Clone(reach)
	g.zeroBlocked(p, card, out)
	return out
}

func (g *Game) zeroBlocked(p int, card poker.Card, vals []float64) {
	idx := uint8(card.Index())
	for i, c := range g.handCards[p] {
		if c[0] == idx || c[1] == idx {
			vals[i] = 0
		}
	}
}

// rootValue returns player p's value at the root, weighted by the initial
// range weights and normalised per compatible pair.
func (g *Game) rootValue(ctx context.Context, mode walkMode, p, threads int) (float64, error) {
	tr := &traversal{g: g, ctx: ctx, mode: mode, player: p, threads: threads}
	out := make([]float64, len(g.hands[p]))
	reach := [2][]float64{slices.Clone(g.weights[0]), slices.Clone(g.weights[1])}
	if err := tr.walk(g.root, reach, out, true); err != nil {
		return 0, err
	}
	total := 0.0
	for h, v := range out {
		total += v * g.weights[p][h]
	}
	return total / g.pairWeight, nil
}

// computeExploitability is the average amount each player could gain by
// deviating to a best response against the other's average strategy.
func (g *Game) computeExploitability(ctx context.Context, threads int) (float64, error) {
	var gain float64
	for p := range 2 {
		br, err := g.rootValue(ctx, modeBestResponse, p, threads)
		if err != nil {
			return 0, err
		}
		ev, err := g.rootValue(ctx, modeAverage, p, threads)
		if err != nil {
			return 0, err
		}
		gain += br - ev
	}
	return gain / 2, nil
}

// ExpectedValues returns each player's value, in chips, when both play their
// average strategies.
func (g *Game) ExpectedValues(ctx context.Context) ([2]float64, error) {
	var ev [2]float64
	if g.root == nil {
		return ev, errNotAllocated
	}
	for p := range 2 {
		v, err := g.rootValue(ctx, modeAverage, p, 1)
		if err != nil {
			return ev, err
		}
		ev[p] = v
	}
	return ev, nil
}

// iterate runs one alternating-update iteration.
func (g *Game) iterate(ctx context.Context, t, threads int) error {
	d := discountFor(t)
	for p := range 2 {
		tr := &traversal{g: g, ctx: ctx, mode: modeTrain, player: p, discount: d, threads: threads}
		out := make([]float64, len(g.hands[p]))
		reach := [2][]float64{slices.Clone(g.weights[0]), slices.Clone(g.weights[1])}
		if err := tr.walk(g.root, reach, out, true); err != nil {
			return err
		}
	}
	return nil
}

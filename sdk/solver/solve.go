package solver

import (
	"context"
	"errors"
	"fmt"
)

var errNotAllocated = errors.New("game storage is not allocated")

// Progress is reported after every iteration.
type Progress struct {
	Iteration      int
	MaxIterations  int
	Exploitability float64
}

// Result summarises a finished solve.
type Result struct {
	Iterations     int
	Exploitability float64
}

// Solve runs discounted CFR until the exploitability is at or below
// cfg.Target or cfg.MaxIterations iterations have run. Exploitability is
// measured before the first iteration, every cfg.ExploitabilityEvery
// iterations and after the last one.
func (g *Game) Solve(ctx context.Context, cfg SolveConfig, progress func(Progress)) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid solve config: %w", err)
	}
	if g.root == nil {
		return Result{}, errNotAllocated
	}

	expl, err := g.computeExploitability(ctx, cfg.Threads)
	if err != nil {
		return Result{}, err
	}
	g.exploitability = expl

	start := g.iterations
	for t := start; t < start+cfg.MaxIterations; t++ {
		if expl <= cfg.Target {
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{Iterations: g.iterations - start, Exploitability: g.exploitability}, err
		}
		if err := g.iterate(ctx, t, cfg.Threads); err != nil {
			return Result{Iterations: g.iterations - start, Exploitability: g.exploitability}, err
		}
		g.iterations++

		done := g.iterations - start
		if done%cfg.ExploitabilityEvery == 0 || done == cfg.MaxIterations {
			if expl, err = g.computeExploitability(ctx, cfg.Threads); err != nil {
				return Result{Iterations: done, Exploitability: g.exploitability}, err
			}
			g.exploitability = expl
		}
		if progress != nil {
			progress(Progress{Iteration: done, MaxIterations: cfg.MaxIterations, Exploitability: expl})
		}
	}
	return Result{Iterations: g.iterations - start, Exploitability: g.exploitability}, nil
}

// Exploitability returns the most recently measured exploitability.
func (g *Game) Exploitability() float64 { return g.exploitability }

// Package engine adapts the built-in solver to the pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/lox/spotsolve/internal/pipeline"
	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/internal/spot"
	"github.com/lox/spotsolve/sdk/solver"
)

// Builtin builds games on sdk/solver.
type Builtin struct {
	// ExploitabilityEvery defaults to the solver's interval when zero.
	ExploitabilityEvery int
	Logger              zerolog.Logger
}

var _ pipeline.Engine = (*Builtin)(nil)

type actionTree struct {
	*solver.ActionTree
}

// BuildTree implements pipeline.Engine.
func (b *Builtin) BuildTree(cfg spot.TreeConfig) (pipeline.ActionTree, error) {
	tc, err := TreeConfig(cfg)
	if err != nil {
		return nil, err
	}
	tree, err := solver.BuildActionTree(tc)
	if err != nil {
		return nil, err
	}
	b.Logger.Debug().Int("nodes", tree.NodeCount()).Int("max_actions", tree.MaxActions()).Msg("Built action tree")
	return actionTree{tree}, nil
}

// NewGame implements pipeline.Engine.
func (b *Builtin) NewGame(cards spot.CardConfig, tree pipeline.ActionTree) (pipeline.Game, error) {
	at, ok := tree.(actionTree)
	if !ok {
		return nil, fmt.Errorf("action tree %T was not built by this engine", tree)
	}
	g, err := solver.NewGame(CardConfig(cards), at.ActionTree)
	if err != nil {
		return nil, err
	}
	b.Logger.Debug().
		Int("oop_hands", len(g.Hands(solver.OOP))).
		Int("ip_hands", len(g.Hands(solver.IP))).
		Msg("Bound ranges to board")
	return &game{g: g, every: b.ExploitabilityEvery}, nil
}

type game struct {
	g     *solver.Game
	every int
}

func (g *game) MemoryEstimate(compressed bool) (uint64, uint64) {
	return g.g.MemoryEstimate(compressed)
}

func (g *game) Allocate(compressed bool) error {
	return g.g.Allocate(compressed)
}

func (g *game) Solve(ctx context.Context, params pipeline.SolveParams, progress func(pipeline.Progress)) (pipeline.SolveResult, error) {
	cfg := solver.DefaultSolveConfig()
	cfg.MaxIterations = params.MaxIterations
	cfg.Target = params.Target
	cfg.Threads = max(params.Threads, 1)
	if g.every > 0 {
		cfg.ExploitabilityEvery = g.every
	}

	var report func(solver.Progress)
	if progress != nil {
		report = func(p solver.Progress) {
			progress(pipeline.Progress{Iteration: p.Iteration, MaxIterations: p.MaxIterations, Exploitability: p.Exploitability})
		}
	}
	res, err := g.g.Solve(ctx, cfg, report)
	return pipeline.SolveResult{Iterations: res.Iterations, Exploitability: res.Exploitability}, err
}

func (g *game) Save(w io.Writer, annotation string, c pipeline.Compression) error {
	return g.g.Save(w, annotation, solver.CompressionLevel{Enabled: c.Enabled, Level: c.Level})
}

// TreeConfig converts an assembled tree configuration to the solver's form.
func TreeConfig(cfg spot.TreeConfig) (solver.TreeConfig, error) {
	street, err := street(cfg.InitialState)
	if err != nil {
		return solver.TreeConfig{}, err
	}
	tc := solver.TreeConfig{
		InitialStreet:       street,
		StartingPot:         cfg.StartingPot,
		EffectiveStack:      cfg.EffectiveStack,
		RakeRate:            cfg.RakeRate,
		RakeCap:             cfg.RakeCap,
		AddAllInThreshold:   cfg.AddAllInThreshold,
		ForceAllInThreshold: cfg.ForceAllInThreshold,
		MergingThreshold:    cfg.MergingThreshold,
	}
	for i, state := range []spot.BoardState{spot.Flop, spot.Turn, spot.River} {
		sizes := cfg.Sizes(state)
		for p := range sizes {
			tc.Sizes[i][p] = solver.BetSizes{Bet: betSizes(sizes[p].Bet), Raise: betSizes(sizes[p].Raise)}
		}
		tc.DonkSizes[i] = betSizes(cfg.DonkSizes(state))
	}
	return tc, nil
}

// CardConfig converts assembled cards to the solver's form.
func CardConfig(c spot.CardConfig) solver.CardConfig {
	return solver.CardConfig{Ranges: c.Ranges, Flop: c.Flop, Turn: c.Turn, River: c.River}
}

func street(s spot.BoardState) (solver.Street, error) {
	switch s {
	case spot.Flop:
		return solver.StreetFlop, nil
	case spot.Turn:
		return solver.StreetTurn, nil
	case spot.River:
		return solver.StreetRiver, nil
	default:
		return 0, errors.New("unknown board state")
	}
}

func betSizes(tokens []sizing.Token) []solver.BetSize {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]solver.BetSize, len(tokens))
	for i, t := range tokens {
		switch t.Kind {
		case sizing.PotRelative:
			out[i] = solver.BetSize{Kind: solver.SizePot, Value: t.Value}
		case sizing.Geometric:
			out[i] = solver.BetSize{Kind: solver.SizeGeometric}
		case sizing.AllIn:
			out[i] = solver.BetSize{Kind: solver.SizeAllIn}
		case sizing.PrevBetRelative:
			out[i] = solver.BetSize{Kind: solver.SizePrevBet, Value: t.Value}
		}
	}
	return out
}

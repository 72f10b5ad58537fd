package pipeline

import (
	"context"
	"io"

	"github.com/lox/spotsolve/internal/spot"
)

// Engine builds solvable games from an assembled spot.
type Engine interface {
	BuildTree(cfg spot.TreeConfig) (ActionTree, error)
	NewGame(cards spot.CardConfig, tree ActionTree) (Game, error)
}

// ActionTree is the betting tree produced by an engine.
type ActionTree interface {
	NodeCount() int
}

// Game is a tree bound to ranges and a board. Storage must not exist until
// Allocate is called.
type Game interface {
	// MemoryEstimate returns the bytes Allocate will need plus the scratch
	// each solver worker needs. It must not allocate game storage.
	MemoryEstimate(compressed bool) (required, perThread uint64)
	Allocate(compressed bool) error
	Solve(ctx context.Context, params SolveParams, progress func(Progress)) (SolveResult, error)
	// Save encodes the solved game to w. Write failures from w must be
	// returned unchanged.
	Save(w io.Writer, annotation string, compression Compression) error
}

// SolveParams bounds a single solve.
type SolveParams struct {
	MaxIterations int
	// Target is the absolute exploitability at which solving stops.
	Target  float64
	Threads int
}

// Progress is reported by the engine while solving.
type Progress struct {
	Iteration      int
	MaxIterations  int
	Exploitability float64
}

// SolveResult summarises a finished solve.
type SolveResult struct {
	Iterations     int
	Exploitability float64
}

// Compression selects artifact compression.
type Compression struct {
	Enabled bool
	Level   int
}

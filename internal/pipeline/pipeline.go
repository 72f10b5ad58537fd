// Package pipeline runs a spot document through assembly, the memory gate,
// the solve and persistence. Stages run strictly in order and the first
// failure ends the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/coder/quartz"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/lox/spotsolve/internal/document"
	"github.com/lox/spotsolve/internal/memgate"
	"github.com/lox/spotsolve/internal/spot"
)

// Options are the per-run settings supplied by the operator.
type Options struct {
	Input  string
	Output string

	// SafetyDivisor defaults to memgate.DefaultSafetyDivisor when zero.
	SafetyDivisor float64
	// Threads defaults to GOMAXPROCS when zero.
	Threads int

	Strict bool
	Atomic bool
	DryRun bool
}

// Pipeline holds the collaborators shared by every run.
type Pipeline struct {
	Engine Engine
	Probe  memgate.Probe
	Clock  quartz.Clock
	Logger zerolog.Logger
	// Out receives operator-facing result lines.
	Out io.Writer
}

// Report describes a completed run.
type Report struct {
	Spot      *spot.Spot
	TreeNodes int
	Estimate  memgate.Estimate
	Decision  memgate.Decision
	Result    SolveResult
	Duration  time.Duration
	Output    string
	DryRun    bool
}

// Run loads opts.Input and executes the pipeline on it.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	doc, err := document.Load(opts.Input)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug().Str("input", opts.Input).Msg("Loaded spot document")
	return p.Execute(ctx, doc, opts)
}

// Execute runs every stage after loading on an already parsed document.
func (p *Pipeline) Execute(ctx context.Context, doc *document.Document, opts Options) (*Report, error) {
	if opts.Strict {
		if err := spot.CheckStrict(doc); err != nil {
			return nil, err
		}
	}

	s, err := spot.Assemble(doc)
	if err != nil {
		return nil, err
	}
	report := &Report{Spot: s, Output: opts.Output, DryRun: opts.DryRun}
	p.Logger.Info().
		Str("board", s.Cards.Board().String()).
		Stringer("state", s.Tree.InitialState).
		Int32("pot", s.Tree.StartingPot).
		Int32("stack", s.Tree.EffectiveStack).
		Msg("Assembled spot")

	tree, err := p.Engine.BuildTree(s.Tree)
	if err != nil {
		return report, &EngineError{Stage: "build tree", Err: err}
	}
	report.TreeNodes = tree.NodeCount()

	game, err := p.Engine.NewGame(s.Cards, tree)
	if err != nil {
		return report, &EngineError{Stage: "build game", Err: err}
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	required, perThread := game.MemoryEstimate(s.Run.CompressState)
	report.Estimate = memgate.Estimate{Required: required, PerThread: perThread, Threads: threads}

	gate := &memgate.Gate{Probe: p.Probe, Divisor: opts.SafetyDivisor, Logger: p.Logger}
	if gate.Probe == nil {
		gate.Probe = memgate.HostProbe{}
	}

	if opts.DryRun {
		report.Decision, err = gate.Evaluate(ctx, report.Estimate)
		if err != nil {
			return report, err
		}
		p.printf("Estimated memory: %s (budget %s)\n",
			humanize.IBytes(report.Decision.Required), humanize.IBytes(report.Decision.Budget))
		return report, nil
	}

	report.Decision, err = gate.Allocate(ctx, report.Estimate, func() error {
		if err := game.Allocate(s.Run.CompressState); err != nil {
			return &EngineError{Stage: "allocate", Err: err}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	driver := &Driver{Clock: p.Clock, Logger: p.Logger, Out: p.Out}
	report.Result, report.Duration, err = driver.Run(ctx, game, SolveParams{
		MaxIterations: int(s.Run.MaxIterations),
		Target:        s.TargetExploitability(),
		Threads:       threads,
	})
	if err != nil {
		return report, err
	}

	persister := &Persister{Atomic: opts.Atomic}
	compression := Compression{Enabled: s.Run.Compress, Level: s.Run.CompressLevel}
	if err := persister.Save(game, s.Run.Annotation, opts.Output, compression); err != nil {
		return report, err
	}
	p.Logger.Info().Str("path", opts.Output).Bool("compressed", compression.Enabled).Msg("Saved solved game")
	return report, nil
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

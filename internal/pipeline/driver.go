package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// DefaultProgressInterval is the minimum time between progress log lines.
const DefaultProgressInterval = 5 * time.Second

// Driver runs the solve. It calls the engine exactly once and never retries.
type Driver struct {
	Clock            quartz.Clock
	Logger           zerolog.Logger
	Out              io.Writer
	ProgressInterval time.Duration
}

// Run solves game until params.Target or params.MaxIterations is reached.
func (d *Driver) Run(ctx context.Context, game Game, params SolveParams) (SolveResult, time.Duration, error) {
	clock := d.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	interval := d.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	d.Logger.Info().
		Int("max_iterations", params.MaxIterations).
		Float64("target", params.Target).
		Int("threads", params.Threads).
		Msg("Solving")

	start := clock.Now()
	lastLog := start
	progress := func(p Progress) {
		d.Logger.Debug().Int("iteration", p.Iteration).Float64("exploitability", p.Exploitability).Msg("Iteration")
		now := clock.Now()
		if now.Sub(lastLog) < interval && p.Iteration != p.MaxIterations {
			return
		}
		lastLog = now
		d.Logger.Info().
			Int("iteration", p.Iteration).
			Int("max_iterations", p.MaxIterations).
			Float64("exploitability", p.Exploitability).
			Dur("elapsed", now.Sub(start)).
			Msg("Progress")
	}

	res, err := game.Solve(ctx, params, progress)
	elapsed := clock.Since(start)
	if err != nil {
		return res, elapsed, &EngineError{Stage: "solve", Err: err}
	}

	if d.Out != nil {
		fmt.Fprintf(d.Out, "Exploitability: %.2f\n", res.Exploitability)
	}
	d.Logger.Info().
		Int("iterations", res.Iterations).
		Float64("exploitability", res.Exploitability).
		Dur("duration", elapsed).
		Msg("Solve finished")
	return res, elapsed, nil
}

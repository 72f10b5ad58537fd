package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/lox/spotsolve/internal/engine"
	"github.com/lox/spotsolve/internal/memgate"
	"github.com/lox/spotsolve/internal/pipeline"
	"github.com/lox/spotsolve/sdk/solver"
)

var cli struct {
	Debug     bool   `help:"enable debug logging" env:"SPOTSOLVE_DEBUG"`
	LogFormat string `help:"log output format" enum:"console,json" default:"console" env:"SPOTSOLVE_LOG_FORMAT"`

	Solve   SolveCmd   `cmd:"" default:"withargs" help:"solve a spot document and save the result"`
	Inspect InspectCmd `cmd:"" help:"summarise a saved solve"`
}

type SolveCmd struct {
	Input  string `arg:"" type:"existingfile" help:"spot document (.json, .toml or .hcl)"`
	Output string `arg:"" type:"path" help:"where to write the solved game"`

	SafetyDivisor float64 `help:"only allocate when the estimate is at most available memory divided by this" default:"2" env:"SPOTSOLVE_SAFETY_DIVISOR"`
	Threads       int     `help:"solver worker count (0 uses GOMAXPROCS)" default:"0" env:"SPOTSOLVE_THREADS"`
	Strict        bool    `help:"reject unknown document keys" env:"SPOTSOLVE_STRICT"`
	Atomic        bool    `help:"write through a temporary file and rename" env:"SPOTSOLVE_ATOMIC"`
	DryRun        bool    `help:"stop after the memory check without allocating"`
}

type InspectCmd struct {
	Artifact string `arg:"" type:"existingfile" help:"saved solve to inspect"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("spotsolve"),
		kong.Description("Solve heads-up postflop spots from declarative spot documents"),
		kong.UsageOnError(),
	)

	logger := setupLogger(cli.Debug, cli.LogFormat)
	err := ctx.Run(logger)
	if err != nil {
		event := logger.Error().Err(err)
		if kind := pipeline.KindOf(err); kind != pipeline.KindNone {
			event = event.Str("kind", string(kind))
		}
		if field := pipeline.FieldOf(err); field != "" {
			event = event.Str("field", field)
		}
		event.Msg("spotsolve failed")
	}
	ctx.FatalIfErrorf(err)
}

func (cmd *SolveCmd) Run(logger zerolog.Logger) error {
	p := &pipeline.Pipeline{
		Engine: &engine.Builtin{Logger: logger},
		Probe:  memgate.HostProbe{},
		Clock:  quartz.NewReal(),
		Logger: logger,
		Out:    os.Stdout,
	}
	report, err := p.Run(context.Background(), pipeline.Options{
		Input:         cmd.Input,
		Output:        cmd.Output,
		SafetyDivisor: cmd.SafetyDivisor,
		Threads:       cmd.Threads,
		Strict:        cmd.Strict,
		Atomic:        cmd.Atomic,
		DryRun:        cmd.DryRun,
	})
	if err != nil {
		return err
	}
	if report.DryRun {
		logger.Info().Int("tree_nodes", report.TreeNodes).Msg("Dry run passed the memory gate")
		return nil
	}
	fmt.Fprintf(os.Stdout, "Saved %s (%d iterations in %s)\n", cmd.Output, report.Result.Iterations, report.Duration.Round(time.Millisecond))
	return nil
}

func (cmd *InspectCmd) Run(logger zerolog.Logger) error {
	f, err := os.Open(cmd.Artifact)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header := make([]byte, 10)
	if _, err := f.ReadAt(header, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	a, err := solver.LoadArtifact(f)
	if err != nil {
		return err
	}
	logger.Debug().Str("path", cmd.Artifact).Int("decision_nodes", len(a.Nodes)).Msg("Loaded artifact")

	fmt.Printf("Annotation:     %s\n", a.Annotation)
	fmt.Printf("Board:          %s (%s)\n", a.Board, a.Tree.InitialStreet)
	fmt.Printf("Pot / stack:    %d / %d\n", a.Tree.StartingPot, a.Tree.EffectiveStack)
	fmt.Printf("Hands:          %d OOP, %d IP\n", len(a.Hands[solver.OOP]), len(a.Hands[solver.IP]))
	fmt.Printf("Iterations:     %d\n", a.Iterations)
	fmt.Printf("Exploitability: %.4f\n", a.Exploitability)
	fmt.Printf("Tree nodes:     %d\n", a.TreeNodes)
	fmt.Printf("Decisions:      %d\n", len(a.Nodes))
	fmt.Printf("Size:           %s (compressed: %t)\n", humanize.IBytes(uint64(info.Size())), solver.Compressed(header))
	return nil
}

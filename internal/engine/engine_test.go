package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/spotsolve/internal/memgate"
	"github.com/lox/spotsolve/internal/pipeline"
	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/internal/spot"
	"github.com/lox/spotsolve/sdk/solver"
)

const flopSpot = `{
  "oop_range": "AA,KK",
  "ip_range": "QQ,JJ",
  "public_card": {"flop": "Qs Jh 2h", "turn": "", "river": ""},
  "tree_config": {
    "starting_pot": 100,
    "effective_stack": 1000,
    "rake_rate": 0.0,
    "rake_cap": 0.0,
    "oop_flop_bet_sizes": {"bet": "50%,e", "raise": "2x"},
    "ip_flop_bet_sizes": {"bet": "50%,e", "raise": "2x"},
    "oop_turn_bet_sizes": {"bet": "", "raise": ""},
    "ip_turn_bet_sizes": {"bet": "", "raise": ""},
    "oop_river_bet_sizes": {"bet": "", "raise": ""},
    "ip_river_bet_sizes": {"bet": "", "raise": ""},
    "turn_donk_sizes": "",
    "river_donk_sizes": ""
  },
  "max_num_iterations": 1,
  "target_exploitability": 0.005,
  "compress_level": 0
}`

func TestTreeConfigConversion(t *testing.T) {
	t.Parallel()
	cfg := spot.TreeConfig{
		InitialState:   spot.Turn,
		StartingPot:    60,
		EffectiveStack: 470,
		RakeRate:       0.05,
		RakeCap:        3,
		TurnSizes: spot.StreetSizing{
			{Bet: []sizing.Token{sizing.Percent(33), {Kind: sizing.Geometric}}, Raise: []sizing.Token{sizing.Multiplier(2.5)}},
			{Bet: []sizing.Token{{Kind: sizing.AllIn}}},
		},
		RiverDonkSizes:      []sizing.Token{sizing.Percent(50)},
		AddAllInThreshold:   1.5,
		ForceAllInThreshold: 0.15,
		MergingThreshold:    0.1,
	}

	got, err := TreeConfig(cfg)
	require.NoError(t, err)

	want := solver.TreeConfig{
		InitialStreet:       solver.StreetTurn,
		StartingPot:         60,
		EffectiveStack:      470,
		RakeRate:            0.05,
		RakeCap:             3,
		AddAllInThreshold:   1.5,
		ForceAllInThreshold: 0.15,
		MergingThreshold:    0.1,
	}
	want.Sizes[1][solver.OOP] = solver.BetSizes{
		Bet:   []solver.BetSize{{Kind: solver.SizePot, Value: 0.33}, {Kind: solver.SizeGeometric}},
		Raise: []solver.BetSize{{Kind: solver.SizePrevBet, Value: 2.5}},
	}
	want.Sizes[1][solver.IP] = solver.BetSizes{Bet: []solver.BetSize{{Kind: solver.SizeAllIn}}}
	want.DonkSizes[2] = []solver.BetSize{{Kind: solver.SizePot, Value: 0.5}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree config mismatch (-want +got):\n%s", diff)
	}
}

func TestNewGameRejectsForeignTree(t *testing.T) {
	t.Parallel()
	b := &Builtin{Logger: zerolog.Nop()}
	_, err := b.NewGame(spot.CardConfig{}, fakeTree{})
	assert.ErrorContains(t, err, "not built by this engine")
}

type fakeTree struct{}

func (fakeTree) NodeCount() int { return 0 }

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "spot.json")
	output := filepath.Join(dir, "spot.bin")
	require.NoError(t, os.WriteFile(input, []byte(flopSpot), 0o644))

	var out bytes.Buffer
	p := &pipeline.Pipeline{
		Engine: &Builtin{Logger: zerolog.Nop()},
		Probe:  memgate.StaticProbe(64 << 30),
		Logger: zerolog.Nop(),
		Out:    &out,
	}
	report, err := p.Run(context.Background(), pipeline.Options{Input: input, Output: output, Threads: 2})
	require.NoError(t, err)

	// Target is 0.5 chips; the first iteration cannot reach it from uniform play.
	assert.Equal(t, 1, report.Result.Iterations)
	assert.Positive(t, report.TreeNodes)
	assert.Contains(t, out.String(), "Exploitability: ")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	header := make([]byte, 10)
	_, err = f.Read(header)
	require.NoError(t, err)
	assert.True(t, solver.Compressed(header), "compress_level 0 compresses at the default level")

	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	a, err := solver.LoadArtifact(f)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Iterations)
	assert.Equal(t, report.Spot.Run.Annotation, a.Annotation)
	assert.Equal(t, report.TreeNodes, a.TreeNodes)
	assert.InDelta(t, report.Result.Exploitability, a.Exploitability, 1e-12)
}

func TestPipelineRejectsOversizedGame(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := filepath.Join(dir, "spot.json")
	output := filepath.Join(dir, "spot.bin")
	require.NoError(t, os.WriteFile(input, []byte(flopSpot), 0o644))

	p := &pipeline.Pipeline{
		Engine: &Builtin{Logger: zerolog.Nop()},
		Probe:  memgate.StaticProbe(1 << 10),
		Logger: zerolog.Nop(),
	}
	_, err := p.Run(context.Background(), pipeline.Options{Input: input, Output: output})
	assert.Equal(t, pipeline.KindResource, pipeline.KindOf(err))
	assert.NoFileExists(t, output)
}

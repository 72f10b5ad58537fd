package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riverGame(t *testing.T, compressed bool) *Game {
	t.Helper()
	g := newGame(t,
		treeConfig(StreetRiver, 300, sizes(pot(0.5), pot(1)), sizes(times(2.5))),
		"AA,KK,QQ,T9s,87s,A5s", "AK,QJs,99,KQ", "Ts9h2c3d7s")
	require.NoError(t, g.Allocate(compressed))
	return g
}

func solveConfig(iterations int) SolveConfig {
	cfg := DefaultSolveConfig()
	cfg.MaxIterations = iterations
	cfg.ExploitabilityEvery = 5
	return cfg
}

func TestSolveReducesExploitability(t *testing.T) {
	t.Parallel()
	g := riverGame(t, false)

	initial, err := g.Solve(context.Background(), solveConfig(0), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, initial.Iterations)
	assert.Positive(t, initial.Exploitability)

	var reports []Progress
	res, err := g.Solve(context.Background(), solveConfig(200), func(p Progress) { reports = append(reports, p) })
	require.NoError(t, err)
	assert.Equal(t, 200, res.Iterations)
	assert.Equal(t, 200, g.Iterations())
	assert.Less(t, res.Exploitability, initial.Exploitability/4)
	assert.GreaterOrEqual(t, res.Exploitability, -1e-9)
	assert.Equal(t, res.Exploitability, g.Exploitability())

	require.Len(t, reports, 200)
	assert.Equal(t, 1, reports[0].Iteration)
	assert.Equal(t, 200, reports[199].Iteration)
	assert.Equal(t, res.Exploitability, reports[199].Exploitability)
}

func TestSolveStopsAtTarget(t *testing.T) {
	t.Parallel()
	g := riverGame(t, false)

	cfg := solveConfig(100)
	cfg.Target = 1e9
	res, err := g.Solve(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)

	cfg.Target = 5
	cfg.ExploitabilityEvery = 1
	res, err = g.Solve(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Exploitability, 5.0)
	assert.Less(t, res.Iterations, 100)
}

func TestSolveKeepsZeroSum(t *testing.T) {
	t.Parallel()
	g := riverGame(t, false)
	_, err := g.Solve(context.Background(), solveConfig(50), nil)
	require.NoError(t, err)

	ev, err := g.ExpectedValues(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0, ev[OOP]+ev[IP], 1e-6)
}

func TestSolveHonoursCancellation(t *testing.T) {
	t.Parallel()
	g := riverGame(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Solve(ctx, solveConfig(10), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveRequiresAllocation(t *testing.T) {
	t.Parallel()
	g := newGame(t, treeConfig(StreetRiver, 300, nil, nil), "AA", "KK", "Ts9h2c3d7s")
	_, err := g.Solve(context.Background(), solveConfig(1), nil)
	assert.ErrorIs(t, err, errNotAllocated)

	require.NoError(t, g.Allocate(false))
	_, err = g.Solve(context.Background(), SolveConfig{MaxIterations: 1}, nil)
	assert.ErrorContains(t, err, "invalid solve config")
}

func TestSolveTurnWithCompressedStorage(t *testing.T) {
	t.Parallel()
	g := newGame(t, treeConfig(StreetTurn, 200, sizes(pot(0.75)), nil), "AA,KK,QJs", "QQ,AK,T9s", "QsJh2h9c")
	require.NoError(t, g.Allocate(true))

	cfg := solveConfig(30)
	cfg.Threads = 4
	initial, err := g.Solve(context.Background(), solveConfig(0), nil)
	require.NoError(t, err)

	res, err := g.Solve(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Less(t, res.Exploitability, initial.Exploitability)
	assert.GreaterOrEqual(t, res.Exploitability, -1e-6)
}

func TestSolveThreadsAgree(t *testing.T) {
	t.Parallel()
	build := func(threads int) float64 {
		g := newGame(t, treeConfig(StreetTurn, 200, sizes(pot(0.5)), nil), "AA,KK", "QQ,AK", "QsJh2h9c")
		require.NoError(t, g.Allocate(false))
		cfg := solveConfig(10)
		cfg.Threads = threads
		res, err := g.Solve(context.Background(), cfg, nil)
		require.NoError(t, err)
		return res.Exploitability
	}
	assert.InDelta(t, build(1), build(3), 1e-9)
}

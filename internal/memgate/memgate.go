// Package memgate decides whether an engine allocation is likely to fit in
// host memory before the allocation is attempted.
package memgate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultSafetyDivisor is the share of available memory withheld from the
// estimate: with a divisor of 2 an allocation may use at most half of what
// the host reports as available. Override it with Gate.Divisor.
const DefaultSafetyDivisor = 2.0

// Probe reports host memory available for new allocations.
type Probe interface {
	AvailableMemory(ctx context.Context) (uint64, error)
}

// HostProbe reads available memory from the operating system.
type HostProbe struct{}

// AvailableMemory implements Probe.
func (HostProbe) AvailableMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("query host memory: %w", err)
	}
	return vm.Available, nil
}

// StaticProbe reports a fixed amount of memory.
type StaticProbe uint64

// AvailableMemory implements Probe.
func (p StaticProbe) AvailableMemory(context.Context) (uint64, error) {
	return uint64(p), nil
}

// Estimate is the engine's memory requirement for one game.
type Estimate struct {
	Required  uint64
	PerThread uint64
	Threads   int
}

// Total is the shared requirement plus per-thread scratch for every worker.
func (e Estimate) Total() uint64 {
	threads := e.Threads
	if threads < 1 {
		threads = 1
	}
	extra := e.PerThread * uint64(threads)
	if e.PerThread != 0 && extra/e.PerThread != uint64(threads) {
		return math.MaxUint64
	}
	if e.Required > math.MaxUint64-extra {
		return math.MaxUint64
	}
	return e.Required + extra
}

// InsufficientMemoryError reports an estimate that exceeds the gated budget.
type InsufficientMemoryError struct {
	Required  uint64
	Available uint64
	Budget    uint64
	Divisor   float64
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory: requires %s, available %s (budget %s at divisor %g)",
		humanize.IBytes(e.Required), humanize.IBytes(e.Available), humanize.IBytes(e.Budget), e.Divisor)
}

// ValidateDivisor rejects divisors that would inflate or disable the budget.
func ValidateDivisor(divisor float64) error {
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) || divisor < 1 {
		return fmt.Errorf("safety divisor must be a finite value >= 1, got %g", divisor)
	}
	return nil
}

// Budget is available / divisor, rounded down.
func Budget(available uint64, divisor float64) uint64 {
	return uint64(math.Floor(float64(available) / divisor))
}

// Check reports whether estimate fits within available / divisor.
func Check(estimate, available uint64, divisor float64) error {
	if err := ValidateDivisor(divisor); err != nil {
		return err
	}
	// Compare estimate*divisor <= available to avoid rounding the budget
	// when the divisor is integral.
	if float64(estimate)*divisor <= float64(available) {
		return nil
	}
	return &InsufficientMemoryError{
		Required:  estimate,
		Available: available,
		Budget:    Budget(available, divisor),
		Divisor:   divisor,
	}
}

// Gate queries the probe once and runs allocate only if the estimate fits.
type Gate struct {
	Probe   Probe
	Divisor float64
	Logger  zerolog.Logger
}

// New returns a gate using the host probe and the default divisor.
func New(logger zerolog.Logger) *Gate {
	return &Gate{Probe: HostProbe{}, Divisor: DefaultSafetyDivisor, Logger: logger}
}

// Decision records the figures a gate decision was made on.
type Decision struct {
	Required  uint64
	Available uint64
	Budget    uint64
}

// Evaluate checks the estimate without allocating.
func (g *Gate) Evaluate(ctx context.Context, est Estimate) (Decision, error) {
	if g.Probe == nil {
		return Decision{}, errors.New("memgate: no memory probe configured")
	}
	divisor := g.Divisor
	if divisor == 0 {
		divisor = DefaultSafetyDivisor
	}
	if err := ValidateDivisor(divisor); err != nil {
		return Decision{}, err
	}

	available, err := g.Probe.AvailableMemory(ctx)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Required: est.Total(), Available: available, Budget: Budget(available, divisor)}
	g.Logger.Debug().
		Str("required", humanize.IBytes(d.Required)).
		Str("available", humanize.IBytes(d.Available)).
		Str("budget", humanize.IBytes(d.Budget)).
		Float64("divisor", divisor).
		Msg("Memory gate")

	return d, Check(d.Required, available, divisor)
}

// Allocate evaluates the estimate and calls allocate exactly once when it
// fits. When it does not, allocate is never called.
func (g *Gate) Allocate(ctx context.Context, est Estimate, allocate func() error) (Decision, error) {
	d, err := g.Evaluate(ctx, est)
	if err != nil {
		return d, err
	}
	if err := allocate(); err != nil {
		return d, err
	}
	g.Logger.Info().Str("memory", humanize.IBytes(d.Required)).Msg("Allocated game storage")
	return d, nil
}

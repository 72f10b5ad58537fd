package solver

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/lox/spotsolve/poker"
)

// Player positions.
const (
	OOP = 0
	IP  = 1
)

// SizeKind selects how a bet size is resolved against the pot and stacks.
type SizeKind uint8

const (
	// SizePot bets Value times the pot; raises add Value times the pot after
	// calling.
	SizePot SizeKind = iota
	// SizeGeometric picks the constant pot fraction that puts the stacks in
	// over the remaining streets.
	SizeGeometric
	// SizeAllIn commits the remaining stack.
	SizeAllIn
	// SizePrevBet raises to Value times the bet faced.
	SizePrevBet
)

// BetSize is one candidate size.
type BetSize struct {
	Kind  SizeKind `json:"kind" msgpack:"kind"`
	Value float64  `json:"value,omitempty" msgpack:"value,omitempty"`
}

func (s BetSize) String() string {
	switch s.Kind {
	case SizePot:
		return strconv.FormatFloat(s.Value*100, 'f', -1, 64) + "%"
	case SizeGeometric:
		return "e"
	case SizeAllIn:
		return "a"
	case SizePrevBet:
		return strconv.FormatFloat(s.Value, 'f', -1, 64) + "x"
	default:
		return "?"
	}
}

// BetSizes lists the sizes offered when opening and when raising.
type BetSizes struct {
	Bet   []BetSize `json:"bet" msgpack:"bet"`
	Raise []BetSize `json:"raise" msgpack:"raise"`
}

// TreeConfig describes the betting tree. Sizes are indexed by street
// (StreetFlop..StreetRiver) and then by player.
type TreeConfig struct {
	InitialStreet  Street  `json:"initial_street" msgpack:"initial_street"`
	StartingPot    int32   `json:"starting_pot" msgpack:"starting_pot"`
	EffectiveStack int32   `json:"effective_stack" msgpack:"effective_stack"`
	RakeRate       float64 `json:"rake_rate" msgpack:"rake_rate"`
	RakeCap        float64 `json:"rake_cap" msgpack:"rake_cap"`

	Sizes     [3][2]BetSizes `json:"sizes" msgpack:"sizes"`
	DonkSizes [3][]BetSize   `json:"donk_sizes" msgpack:"donk_sizes"`

	AddAllInThreshold   float64 `json:"add_allin_threshold" msgpack:"add_allin_threshold"`
	ForceAllInThreshold float64 `json:"force_allin_threshold" msgpack:"force_allin_threshold"`
	MergingThreshold    float64 `json:"merging_threshold" msgpack:"merging_threshold"`
}

func streetIndex(s Street) int {
	return int(s) - int(StreetFlop)
}

// StreetSizes returns the sizes for player on street.
func (c TreeConfig) StreetSizes(s Street, player int) BetSizes {
	return c.Sizes[streetIndex(s)][player]
}

// StreetDonkSizes returns the donk sizes for street, or nil when disabled.
func (c TreeConfig) StreetDonkSizes(s Street) []BetSize {
	return c.DonkSizes[streetIndex(s)]
}

// Validate ensures the tree can be built.
func (c TreeConfig) Validate() error {
	if c.InitialStreet < StreetFlop || c.InitialStreet > StreetRiver {
		return fmt.Errorf("initial street must be flop, turn or river, got %s", c.InitialStreet)
	}
	if c.StartingPot <= 0 {
		return errors.New("starting pot must be > 0")
	}
	if c.EffectiveStack <= 0 {
		return errors.New("effective stack must be > 0")
	}
	if !finite(c.RakeRate) || c.RakeRate < 0 || c.RakeRate > 1 {
		return errors.New("rake rate must be within [0, 1]")
	}
	if !finite(c.RakeCap) || c.RakeCap < 0 {
		return errors.New("rake cap cannot be negative")
	}
	for _, v := range []float64{c.AddAllInThreshold, c.ForceAllInThreshold, c.MergingThreshold} {
		if !finite(v) || v < 0 {
			return errors.New("thresholds must be finite and non-negative")
		}
	}
	for si := range c.Sizes {
		street := Street(si + int(StreetFlop))
		for p := range c.Sizes[si] {
			if err := validateSizes(c.Sizes[si][p].Bet, false); err != nil {
				return fmt.Errorf("%s bet sizes for player %d: %w", street, p, err)
			}
			if err := validateSizes(c.Sizes[si][p].Raise, true); err != nil {
				return fmt.Errorf("%s raise sizes for player %d: %w", street, p, err)
			}
		}
		if err := validateSizes(c.DonkSizes[si], false); err != nil {
			return fmt.Errorf("%s donk sizes: %w", street, err)
		}
	}
	if c.DonkSizes[streetIndex(StreetFlop)] != nil {
		return errors.New("donk sizes are not defined for the flop")
	}
	return nil
}

func validateSizes(sizes []BetSize, raise bool) error {
	for i, s := range sizes {
		switch s.Kind {
		case SizePot:
			if !finite(s.Value) || s.Value < 0 {
				return fmt.Errorf("size[%d] must be a non-negative pot fraction", i)
			}
		case SizeGeometric, SizeAllIn:
		case SizePrevBet:
			if !raise {
				return fmt.Errorf("size[%d]: multiplier requires a bet to raise", i)
			}
			if !finite(s.Value) || s.Value <= 1 {
				return fmt.Errorf("size[%d]: multiplier must be > 1", i)
			}
		default:
			return fmt.Errorf("size[%d]: unknown kind %d", i, s.Kind)
		}
	}
	return nil
}

// CardConfig holds both ranges and the dealt board. Turn and River are zero
// while undealt.
type CardConfig struct {
	Ranges [2]string     `json:"ranges" msgpack:"ranges"`
	Flop   [3]poker.Card `json:"flop" msgpack:"flop"`
	Turn   poker.Card    `json:"turn" msgpack:"turn"`
	River  poker.Card    `json:"river" msgpack:"river"`
}

// Board returns the dealt cards as a mask.
func (c CardConfig) Board() poker.Hand {
	board := poker.NewHand(c.Flop[:]...)
	if c.Turn != 0 {
		board.AddCard(c.Turn)
	}
	if c.River != 0 {
		board.AddCard(c.River)
	}
	return board
}

// Street is the last street with dealt cards.
func (c CardConfig) Street() Street {
	switch {
	case c.River != 0:
		return StreetRiver
	case c.Turn != 0:
		return StreetTurn
	default:
		return StreetFlop
	}
}

// SolveConfig controls a call to Game.Solve.
type SolveConfig struct {
	MaxIterations int
	// Target is the absolute exploitability, in chips, at which solving stops.
	Target float64
	// ExploitabilityEvery is how often, in iterations, exploitability is
	// recomputed. It is always recomputed after the final iteration.
	ExploitabilityEvery int
	Threads             int
}

// Validate ensures the solve parameters are usable.
func (c SolveConfig) Validate() error {
	if c.MaxIterations < 0 {
		return errors.New("max iterations cannot be negative")
	}
	if !finite(c.Target) || c.Target < 0 {
		return errors.New("target exploitability must be finite and non-negative")
	}
	if c.ExploitabilityEvery <= 0 {
		return errors.New("exploitability interval must be > 0")
	}
	if c.Threads <= 0 {
		return errors.New("threads must be > 0")
	}
	return nil
}

// DefaultSolveConfig returns settings matching a short interactive solve.
func DefaultSolveConfig() SolveConfig {
	return SolveConfig{
		MaxIterations:       1000,
		Target:              0,
		ExploitabilityEvery: 10,
		Threads:             1,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

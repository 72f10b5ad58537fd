// Package spot assembles a validated solver configuration from a spot
// document. The result is built once and treated as read-only afterwards.
package spot

import (
	"fmt"

	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/poker"
)

// Player positions on every postflop street.
const (
	OOP = 0
	IP  = 1
)

// BoardState is how far the board has been dealt when solving starts.
type BoardState uint8

const (
	Flop BoardState = iota
	Turn
	River
)

func (s BoardState) String() string {
	switch s {
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "unknown"
	}
}

// CardConfig holds the ranges and the dealt board. Turn and River are zero
// while undealt.
type CardConfig struct {
	Ranges [2]string
	Flop   [3]poker.Card
	Turn   poker.Card
	River  poker.Card
}

// State derives the board state from the dealt cards.
func (c CardConfig) State() BoardState {
	switch {
	case c.River != 0:
		return River
	case c.Turn != 0:
		return Turn
	default:
		return Flop
	}
}

// Board returns every dealt card as a single mask.
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

// StreetSizing holds the sizing options for each position on one street,
// indexed by OOP and IP.
type StreetSizing [2]sizing.Options

// TreeConfig is the complete input to the action tree builder.
type TreeConfig struct {
	InitialState   BoardState
	StartingPot    int32
	EffectiveStack int32
	RakeRate       float64
	RakeCap        float64

	FlopSizes  StreetSizing
	TurnSizes  StreetSizing
	RiverSizes StreetSizing

	// Donk sizes are nil when the document does not enable donk betting on
	// that street.
	TurnDonkSizes  []sizing.Token
	RiverDonkSizes []sizing.Token

	AddAllInThreshold   float64
	ForceAllInThreshold float64
	MergingThreshold    float64
}

// Sizes returns the sizing for the given street.
func (t TreeConfig) Sizes(state BoardState) StreetSizing {
	switch state {
	case Turn:
		return t.TurnSizes
	case River:
		return t.RiverSizes
	default:
		return t.FlopSizes
	}
}

// DonkSizes returns the donk sizes for the given street, or nil.
func (t TreeConfig) DonkSizes(state BoardState) []sizing.Token {
	switch state {
	case Turn:
		return t.TurnDonkSizes
	case River:
		return t.RiverDonkSizes
	default:
		return nil
	}
}

// RunConfig controls the solve and the persisted artifact.
type RunConfig struct {
	MaxIterations  int32
	TargetFraction float64

	// Compress is false when the document has no compress_level, in which
	// case CompressLevel is ignored.
	Compress      bool
	CompressLevel int
	CompressState bool
	Annotation    string
}

// Spot bundles everything assembled from one document.
type Spot struct {
	Cards CardConfig
	Tree  TreeConfig
	Run   RunConfig
}

// TargetExploitability is the absolute convergence target in chips.
func (s *Spot) TargetExploitability() float64 {
	return float64(s.Tree.StartingPot) * s.Run.TargetFraction
}

func defaultAnnotation(c CardConfig, t TreeConfig) string {
	return fmt.Sprintf("%s %s pot=%d stack=%d", c.Board(), t.InitialState, t.StartingPot, t.EffectiveStack)
}

package spot

import (
	"errors"
	"fmt"
	"math"

	"github.com/lox/spotsolve/internal/document"
	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/poker"
)

// Shaping thresholds used when the document does not set them.
const (
	DefaultAddAllInThreshold   = 1.5
	DefaultForceAllInThreshold = 0.15
	DefaultMergingThreshold    = 0.1
)

// MaxCompressLevel is the highest accepted compress_level.
const MaxCompressLevel = 22

var streetKeys = [3]string{"flop", "turn", "river"}

// ValidationError reports values that are individually well formed but
// inconsistent or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FieldPath returns the offending document path.
func (e *ValidationError) FieldPath() string { return e.Field }

// Assemble reads and validates a spot. Stages run in order and the first
// failure is returned unchanged, so no later field is read once one fails.
func Assemble(doc *document.Document) (*Spot, error) {
	cards, err := assembleCards(doc)
	if err != nil {
		return nil, err
	}
	tree, err := assembleTree(doc, cards.State())
	if err != nil {
		return nil, err
	}
	run, err := assembleRun(doc)
	if err != nil {
		return nil, err
	}
	if run.Annotation == "" {
		run.Annotation = defaultAnnotation(cards, tree)
	}
	return &Spot{Cards: cards, Tree: tree, Run: run}, nil
}

func assembleCards(doc *document.Document) (CardConfig, error) {
	var c CardConfig
	var err error

	if c.Ranges[OOP], err = doc.String("oop_range"); err != nil {
		return c, err
	}
	if c.Ranges[IP], err = doc.String("ip_range"); err != nil {
		return c, err
	}

	flop, err := doc.String("public_card", "flop")
	if err != nil {
		return c, err
	}
	turn, err := optionalString(doc, "", "public_card", "turn")
	if err != nil {
		return c, err
	}
	river, err := optionalString(doc, "", "public_card", "river")
	if err != nil {
		return c, err
	}

	if flop == "" {
		return c, &ValidationError{Field: "public_card.flop", Reason: "flop must be dealt"}
	}
	if river != "" && turn == "" {
		return c, &ValidationError{Field: "public_card.river", Reason: "river dealt without a turn"}
	}

	cards, err := poker.ParseCards(flop)
	if err != nil {
		return c, &ValidationError{Field: "public_card.flop", Reason: err.Error()}
	}
	if len(cards) != 3 {
		return c, &ValidationError{Field: "public_card.flop", Reason: fmt.Sprintf("expected 3 cards, got %d", len(cards))}
	}
	copy(c.Flop[:], cards)
	board := poker.NewHand(cards...)

	if turn != "" {
		if c.Turn, err = singleCard("public_card.turn", turn, board); err != nil {
			return c, err
		}
		board.AddCard(c.Turn)
	}
	if river != "" {
		if c.River, err = singleCard("public_card.river", river, board); err != nil {
			return c, err
		}
	}
	return c, nil
}

func singleCard(field, text string, board poker.Hand) (poker.Card, error) {
	cards, err := poker.ParseCards(text)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: err.Error()}
	}
	if len(cards) != 1 {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("expected 1 card, got %d", len(cards))}
	}
	if board.HasCard(cards[0]) {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("card %s is already on the board", cards[0])}
	}
	return cards[0], nil
}

func assembleTree(doc *document.Document, state BoardState) (TreeConfig, error) {
	t := TreeConfig{InitialState: state}

	streets := [3]*StreetSizing{&t.FlopSizes, &t.TurnSizes, &t.RiverSizes}
	for i, street := range streetKeys {
		for pos, prefix := range [2]string{"oop", "ip"} {
			key := fmt.Sprintf("%s_%s_bet_sizes", prefix, street)
			opts, err := sizingPair(doc, key)
			if err != nil {
				return t, err
			}
			streets[i][pos] = opts
		}
	}

	var err error
	if t.StartingPot, err = doc.Int("tree_config", "starting_pot"); err != nil {
		return t, err
	}
	if t.EffectiveStack, err = doc.Int("tree_config", "effective_stack"); err != nil {
		return t, err
	}
	if t.RakeRate, err = doc.Float("tree_config", "rake_rate"); err != nil {
		return t, err
	}
	if t.RakeCap, err = doc.Float("tree_config", "rake_cap"); err != nil {
		return t, err
	}

	switch {
	case t.StartingPot <= 0:
		return t, &ValidationError{Field: "tree_config.starting_pot", Reason: "must be positive"}
	case t.EffectiveStack <= 0:
		return t, &ValidationError{Field: "tree_config.effective_stack", Reason: "must be positive"}
	case !finite(t.RakeRate) || t.RakeRate < 0 || t.RakeRate > 1:
		return t, &ValidationError{Field: "tree_config.rake_rate", Reason: "must be between 0 and 1"}
	case !finite(t.RakeCap) || t.RakeCap < 0:
		return t, &ValidationError{Field: "tree_config.rake_cap", Reason: "must be non-negative"}
	}

	if t.TurnDonkSizes, err = donkSizes(doc, "turn_donk_sizes"); err != nil {
		return t, err
	}
	if t.RiverDonkSizes, err = donkSizes(doc, "river_donk_sizes"); err != nil {
		return t, err
	}

	thresholds := []struct {
		key string
		def float64
		dst *float64
	}{
		{"add_allin_threshold", DefaultAddAllInThreshold, &t.AddAllInThreshold},
		{"force_allin_threshold", DefaultForceAllInThreshold, &t.ForceAllInThreshold},
		{"merging_threshold", DefaultMergingThreshold, &t.MergingThreshold},
	}
	for _, th := range thresholds {
		v, err := optionalFloat(doc, th.def, "tree_config", th.key)
		if err != nil {
			return t, err
		}
		if !finite(v) || v < 0 {
			return t, &ValidationError{Field: "tree_config." + th.key, Reason: "must be non-negative"}
		}
		*th.dst = v
	}
	return t, nil
}

func sizingPair(doc *document.Document, key string) (sizing.Options, error) {
	bet, err := doc.String("tree_config", key, "bet")
	if err != nil {
		return sizing.Options{}, err
	}
	raise, err := doc.String("tree_config", key, "raise")
	if err != nil {
		return sizing.Options{}, err
	}

	var opts sizing.Options
	if opts.Bet, err = sizing.ParseOpening(bet); err != nil {
		return opts, withField(err, "tree_config."+key+".bet")
	}
	if opts.Raise, err = sizing.Parse(raise); err != nil {
		return opts, withField(err, "tree_config."+key+".raise")
	}
	return opts, nil
}

func donkSizes(doc *document.Document, key string) ([]sizing.Token, error) {
	spec, err := optionalString(doc, "", "tree_config", key)
	if err != nil || spec == "" {
		return nil, err
	}
	tokens, err := sizing.ParseOpening(spec)
	if err != nil {
		return nil, withField(err, "tree_config."+key)
	}
	return tokens, nil
}

func assembleRun(doc *document.Document) (RunConfig, error) {
	var r RunConfig
	var err error

	if r.MaxIterations, err = doc.Int("max_num_iterations"); err != nil {
		return r, err
	}
	if r.MaxIterations < 0 {
		return r, &ValidationError{Field: "max_num_iterations", Reason: "must be non-negative"}
	}
	if r.TargetFraction, err = doc.Float("target_exploitability"); err != nil {
		return r, err
	}
	if !finite(r.TargetFraction) || r.TargetFraction < 0 {
		return r, &ValidationError{Field: "target_exploitability", Reason: "must be non-negative"}
	}

	if doc.Has("compress_level") {
		level, err := doc.Int("compress_level")
		if err != nil {
			return r, err
		}
		if level < 0 || level > MaxCompressLevel {
			return r, &ValidationError{Field: "compress_level", Reason: fmt.Sprintf("must be between 0 and %d", MaxCompressLevel)}
		}
		r.Compress = true
		r.CompressLevel = int(level)
	}

	if doc.Has("compress_state") {
		if r.CompressState, err = doc.Bool("compress_state"); err != nil {
			return r, err
		}
	}
	if r.Annotation, err = optionalString(doc, "", "annotation"); err != nil {
		return r, err
	}
	return r, nil
}

func optionalString(doc *document.Document, def string, path ...string) (string, error) {
	v, err := doc.String(path...)
	if isMissing(err) {
		return def, nil
	}
	return v, err
}

func optionalFloat(doc *document.Document, def float64, path ...string) (float64, error) {
	v, err := doc.Float(path...)
	if isMissing(err) {
		return def, nil
	}
	return v, err
}

func isMissing(err error) bool {
	var missing *document.MissingKeyError
	return errors.As(err, &missing)
}

func withField(err error, field string) error {
	var gerr *sizing.GrammarError
	if errors.As(err, &gerr) {
		gerr.Field = field
	}
	return err
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/spotsolve/internal/document"
	"github.com/lox/spotsolve/internal/memgate"
	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/internal/spot"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err   error
		kind  Kind
		field string
	}{
		{nil, KindNone, ""},
		{errors.New("other"), KindNone, ""},
		{&document.MissingKeyError{Path: document.Path{"tree_config", "rake_cap"}, Key: "rake_cap"}, KindConfig, "tree_config.rake_cap"},
		{&document.TypeMismatchError{Path: document.Path{"oop_range"}}, KindConfig, "oop_range"},
		{&sizing.GrammarError{Field: "tree_config.oop_flop_bet_sizes.bet", Token: "50"}, KindGrammar, "tree_config.oop_flop_bet_sizes.bet"},
		{fmt.Errorf("wrapped: %w", &spot.ValidationError{Field: "public_card.river", Reason: "turn missing"}), KindValidation, "public_card.river"},
		{&memgate.InsufficientMemoryError{Required: 2, Available: 1}, KindResource, ""},
		{&EngineError{Stage: "solve", Err: errors.New("x")}, KindEngine, ""},
		{&PersistError{Path: "out.bin", Err: errors.New("x")}, KindIO, "out.bin"},
		{&PersistError{Path: "out.bin", Serialization: true, Err: errors.New("x")}, KindSerialization, "out.bin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err), "%v", tt.err)
		assert.Equal(t, tt.field, FieldOf(tt.err), "%v", tt.err)
	}
}

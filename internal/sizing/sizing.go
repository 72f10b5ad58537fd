// Package sizing parses the comma-separated bet, raise and donk sizing
// strings used in spot documents.
//
//	60%   bet or raise by a fraction of the pot
//	e     geometric size that gets the effective stack in by the river
//	a     all-in
//	2.5x  raise to a multiple of the bet faced
package sizing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TokenKind classifies a sizing token.
type TokenKind uint8

const (
	PotRelative TokenKind = iota
	Geometric
	AllIn
	PrevBetRelative
)

func (k TokenKind) String() string {
	switch k {
	case PotRelative:
		return "pot"
	case Geometric:
		return "geometric"
	case AllIn:
		return "allin"
	case PrevBetRelative:
		return "multiplier"
	default:
		return "unknown"
	}
}

// Token is one parsed size. Value holds the pot fraction for PotRelative
// (60% is 0.6) and the multiplier for PrevBetRelative; it is zero otherwise.
type Token struct {
	Kind  TokenKind
	Value float64
}

// Percent returns a pot-relative token for p percent.
func Percent(p float64) Token { return Token{Kind: PotRelative, Value: p / 100} }

// Multiplier returns a token raising to m times the bet faced.
func Multiplier(m float64) Token { return Token{Kind: PrevBetRelative, Value: m} }

func (t Token) String() string {
	switch t.Kind {
	case PotRelative:
		return strconv.FormatFloat(math.Round(t.Value*1e8)/1e6, 'f', -1, 64) + "%"
	case Geometric:
		return "e"
	case AllIn:
		return "a"
	case PrevBetRelative:
		return strconv.FormatFloat(t.Value, 'f', -1, 64) + "x"
	default:
		return "?"
	}
}

// Parse splits spec on commas and parses each non-empty token. An empty or
// blank spec yields a nil slice.
func Parse(spec string) ([]Token, error) {
	var tokens []Token
	offset := 0
	index := 0
	for _, raw := range strings.Split(spec, ",") {
		start := offset
		offset += len(raw) + 1

		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		tok, reason := parseToken(strings.ToLower(text))
		if reason != "" {
			return nil, &GrammarError{
				Spec:   spec,
				Token:  text,
				Index:  index,
				Offset: start + strings.Index(raw, text),
				Reason: reason,
			}
		}
		tokens = append(tokens, tok)
		index++
	}
	return tokens, nil
}

func parseToken(text string) (Token, string) {
	switch {
	case text == "e":
		return Token{Kind: Geometric}, ""
	case text == "a":
		return Token{Kind: AllIn}, ""
	case strings.HasSuffix(text, "%"):
		v, ok := parseNumber(strings.TrimSuffix(text, "%"))
		if !ok {
			return Token{}, "invalid percentage"
		}
		return Token{Kind: PotRelative, Value: v / 100}, ""
	case strings.HasSuffix(text, "x"):
		v, ok := parseNumber(strings.TrimSuffix(text, "x"))
		if !ok {
			return Token{}, "invalid multiplier"
		}
		if v <= 1 {
			return Token{}, "multiplier must be greater than 1"
		}
		return Token{Kind: PrevBetRelative, Value: v}, ""
	default:
		return Token{}, "unrecognised size"
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Options is the sizing offered at one decision point: the sizes used to
// open the betting and the sizes used to raise an existing bet.
type Options struct {
	Bet   []Token
	Raise []Token
}

// ParseOptions parses a bet/raise pair. Multipliers are rejected in the bet
// list since there is no bet to multiply.
func ParseOptions(bet, raise string) (Options, error) {
	b, err := ParseOpening(bet)
	if err != nil {
		return Options{}, err
	}
	r, err := Parse(raise)
	if err != nil {
		return Options{}, err
	}
	return Options{Bet: b, Raise: r}, nil
}

// ParseOpening parses a list of sizes used when no bet is faced, such as bet
// or donk sizes.
func ParseOpening(spec string) ([]Token, error) {
	tokens, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	for i, t := range tokens {
		if t.Kind == PrevBetRelative {
			return nil, &GrammarError{
				Spec:   spec,
				Token:  t.String(),
				Index:  i,
				Offset: -1,
				Reason: "multiplier is only valid when facing a bet",
			}
		}
	}
	return tokens, nil
}

// Format renders tokens back to their canonical comma-separated form.
func Format(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// GrammarError reports a token that does not match any sizing form.
type GrammarError struct {
	Field  string
	Spec   string
	Token  string
	Index  int
	Offset int
	Reason string
}

func (e *GrammarError) Error() string {
	var sb strings.Builder
	if e.Field != "" {
		sb.WriteString(e.Field)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "invalid size %q at position %d", e.Token, e.Index)
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " (offset %d in %q)", e.Offset, e.Spec)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

// FieldPath returns the document path the spec was read from, if known.
func (e *GrammarError) FieldPath() string { return e.Field }

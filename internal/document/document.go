// Package document provides typed, path-addressed read access over a loosely
// structured spot document. Documents are normalised to JSON on load and are
// never mutated afterwards.
package document

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the expected type of a leaf value.
type Kind uint8

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float64"
	case KindInt:
		return "int32"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Path is an ordered list of keys walked from the document root.
type Path []string

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Document is a read-only view over a parsed document.
type Document struct {
	source string
	raw    []byte
	root   gjson.Result
}

// Parse wraps JSON bytes. The top level must be an object.
func Parse(source string, data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid JSON")}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("top level must be an object, got %s", describe(root))}
	}
	return &Document{source: source, raw: data, root: root}, nil
}

// Source names where the document came from.
func (d *Document) Source() string {
	return d.source
}

// Raw returns the normalised JSON bytes. Callers must not modify them.
func (d *Document) Raw() []byte {
	return d.raw
}

// Has reports whether every key along path resolves.
func (d *Document) Has(path ...string) bool {
	_, err := d.lookup(path)
	return err == nil
}

// Get resolves path and coerces the leaf to kind. The returned value is a
// string, float64, int32 or bool respectively.
func (d *Document) Get(path Path, kind Kind) (any, error) {
	switch kind {
	case KindString:
		return d.String(path...)
	case KindFloat:
		return d.Float(path...)
	case KindInt:
		return d.Int(path...)
	case KindBool:
		return d.Bool(path...)
	default:
		return nil, fmt.Errorf("document: unsupported kind %d", kind)
	}
}

// String resolves a string leaf.
func (d *Document) String(path ...string) (string, error) {
	v, err := d.lookup(path)
	if err != nil {
		return "", err
	}
	if v.Type != gjson.String {
		return "", mismatch(path, KindString, v)
	}
	return v.Str, nil
}

// Float resolves a numeric leaf.
func (d *Document) Float(path ...string) (float64, error) {
	v, err := d.lookup(path)
	if err != nil {
		return 0, err
	}
	if v.Type != gjson.Number {
		return 0, mismatch(path, KindFloat, v)
	}
	return v.Num, nil
}

// Int resolves an integral numeric leaf that fits in 32 bits. Numbers with a
// fractional part are a mismatch, not a truncation.
func (d *Document) Int(path ...string) (int32, error) {
	v, err := d.lookup(path)
	if err != nil {
		return 0, err
	}
	if v.Type != gjson.Number {
		return 0, mismatch(path, KindInt, v)
	}
	if v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) {
		return 0, &TypeMismatchError{Path: Path(path), Expected: KindInt, Actual: "float"}
	}
	if v.Num < math.MinInt32 || v.Num > math.MaxInt32 {
		return 0, &TypeMismatchError{Path: Path(path), Expected: KindInt, Actual: "number out of int32 range"}
	}
	return int32(v.Num), nil
}

// Bool resolves a boolean leaf.
func (d *Document) Bool(path ...string) (bool, error) {
	v, err := d.lookup(path)
	if err != nil {
		return false, err
	}
	if v.Type != gjson.True && v.Type != gjson.False {
		return false, mismatch(path, KindBool, v)
	}
	return v.Bool(), nil
}

func (d *Document) lookup(path []string) (gjson.Result, error) {
	if len(path) == 0 {
		return gjson.Result{}, fmt.Errorf("document: empty path")
	}
	cur := d.root
	for i, key := range path {
		next := cur.Get(escapeKey(key))
		if !cur.IsObject() || !next.Exists() {
			return gjson.Result{}, &MissingKeyError{Path: Path(path), Key: key, Depth: i}
		}
		cur = next
	}
	return cur, nil
}

// escapeKey protects gjson path metacharacters so each key is matched literally.
func escapeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func mismatch(path []string, kind Kind, v gjson.Result) error {
	return &TypeMismatchError{Path: Path(path), Expected: kind, Actual: describe(v)}
}

func describe(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.Null:
		return "null"
	case gjson.JSON:
		if v.IsArray() {
			return "array"
		}
		return "object"
	default:
		return "unknown"
	}
}

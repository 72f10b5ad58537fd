package pipeline

import (
	"errors"
	"fmt"

	"github.com/lox/spotsolve/internal/document"
	"github.com/lox/spotsolve/internal/memgate"
	"github.com/lox/spotsolve/internal/sizing"
	"github.com/lox/spotsolve/internal/spot"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindNone          Kind = ""
	KindConfig        Kind = "config"
	KindGrammar       Kind = "grammar"
	KindValidation    Kind = "validation"
	KindResource      Kind = "resource"
	KindEngine        Kind = "engine"
	KindIO            Kind = "io"
	KindSerialization Kind = "serialization"
)

// EngineError wraps a failure raised by the solving engine.
type EngineError struct {
	Stage string
	Err   error
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine %s: %v", e.Stage, e.Err) }

func (e *EngineError) Unwrap() error { return e.Err }

// PersistError reports a failure saving the solved game. Serialization is
// set when encoding failed rather than the write itself.
type PersistError struct {
	Path          string
	Serialization bool
	Err           error
}

func (e *PersistError) Error() string {
	if e.Serialization {
		return fmt.Sprintf("serialize %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// FieldPath returns the output path.
func (e *PersistError) FieldPath() string { return e.Path }

// KindOf maps err onto the error taxonomy. Errors from outside the pipeline
// are KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		missing    *document.MissingKeyError
		mismatch   *document.TypeMismatchError
		parse      *document.ParseError
		read       *document.ReadError
		schema     *document.SchemaError
		grammar    *sizing.GrammarError
		validation *spot.ValidationError
		memory     *memgate.InsufficientMemoryError
		engine     *EngineError
		persist    *PersistError
	)
	switch {
	case errors.As(err, &grammar):
		return KindGrammar
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &missing), errors.As(err, &mismatch), errors.As(err, &parse),
		errors.As(err, &read), errors.As(err, &schema):
		return KindConfig
	case errors.As(err, &memory):
		return KindResource
	case errors.As(err, &engine):
		return KindEngine
	case errors.As(err, &persist):
		if persist.Serialization {
			return KindSerialization
		}
		return KindIO
	default:
		return KindNone
	}
}

// FieldOf returns the document path, sizing field or output path an error
// refers to, if any.
func FieldOf(err error) string {
	var f interface{ FieldPath() string }
	if errors.As(err, &f) {
		return f.FieldPath()
	}
	return ""
}

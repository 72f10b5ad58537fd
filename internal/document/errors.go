package document

import "fmt"

// MissingKeyError reports the first key along a path that does not resolve.
type MissingKeyError struct {
	Path  Path
	Key   string
	Depth int
}

func (e *MissingKeyError) Error() string {
	if e.Depth == len(e.Path)-1 {
		return fmt.Sprintf("missing key %q at %s", e.Key, e.Path)
	}
	return fmt.Sprintf("missing key %q at %s (resolving %s)", e.Key, e.Path[:e.Depth+1], e.Path)
}

// FieldPath returns the full path that was requested.
func (e *MissingKeyError) FieldPath() string { return e.Path.String() }

// TypeMismatchError reports a leaf that exists but has the wrong type.
type TypeMismatchError struct {
	Path     Path
	Expected Kind
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// FieldPath returns the offending path.
func (e *TypeMismatchError) FieldPath() string { return e.Path.String() }

// ParseError reports a document that could not be decoded at all.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadError reports a document that could not be read from storage.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// SchemaError reports a document that violates a closed schema.
type SchemaError struct {
	Location string
	Message  string
}

func (e *SchemaError) Error() string {
	if e.Location == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema: %s: %s", e.Location, e.Message)
}

// FieldPath returns the offending location in dotted form.
func (e *SchemaError) FieldPath() string { return e.Location }

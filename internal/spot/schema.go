package spot

import (
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lox/spotsolve/internal/document"
)

//go:embed schemas
var schemaFiles embed.FS

const schemaURL = "https://spotsolve.dev/schemas/spot.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the closed schema for spot documents.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := schemaFiles.ReadFile("schemas/spot.json")
		if err != nil {
			schemaErr = fmt.Errorf("failed to read spot schema: %w", err)
			return
		}
		schema, schemaErr = document.CompileSchema(schemaURL, data)
	})
	return schema, schemaErr
}

// CheckStrict rejects documents with unknown keys or ill-typed values before
// assembly.
func CheckStrict(doc *document.Document) error {
	s, err := Schema()
	if err != nil {
		return err
	}
	return doc.Validate(s)
}

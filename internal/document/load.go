package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Format identifies the on-disk syntax of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".hcl":
		return FormatHCL
	default:
		return FormatJSON
	}
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return Decode(path, FormatFromPath(path), data)
}

// Decode normalises data in the given format to JSON and parses it.
func Decode(source string, format Format, data []byte) (*Document, error) {
	switch format {
	case FormatJSON:
		return Parse(source, data)
	case FormatTOML:
		normalised, err := tomlToJSON(data)
		if err != nil {
			return nil, &ParseError{Source: source, Err: err}
		}
		return Parse(source, normalised)
	case FormatHCL:
		normalised, err := hclToJSON(source, data)
		if err != nil {
			return nil, &ParseError{Source: source, Err: err}
		}
		return Parse(source, normalised)
	default:
		return nil, &ParseError{Source: source, Err: fmt.Errorf("unsupported format %q", format)}
	}
}

func tomlToJSON(data []byte) ([]byte, error) {
	var v map[string]any
	if _, err := toml.Decode(string(data), &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// hclToJSON evaluates a body of top-level attributes without any variables
// or functions. Nested sections are written as object expressions:
//
//	public_card = { flop = "QsJh2h", turn = "", river = "" }
func hclToJSON(filename string, data []byte) ([]byte, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
		}
		values[name] = val
	}

	obj := cty.ObjectVal(values)
	return ctyjson.Marshal(obj, obj.Type())
}

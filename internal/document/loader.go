package document

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/routinegraph/pkg/schema"
)

// Format is the serialization of a routine document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format from a file extension; JSON is the default.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Loader reads routine documents into graphs.
type Loader struct {
	validator *Validator
	selector  *Selector
	query     string
	logger    *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithQuery sets a jq query selecting the routine inside the document.
func WithQuery(query string) LoaderOption {
	return func(l *Loader) { l.query = query }
}

// WithoutSchemaCheck skips JSON Schema validation.
func WithoutSchemaCheck() LoaderOption {
	return func(l *Loader) { l.validator = nil }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader validating documents against the routine schema.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	l := &Loader{
		validator: v,
		selector:  NewSelector(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// LoadFile reads the document at path, inferring its format from the extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (schema.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Graph{}, schema.NewErrorf(schema.ErrCodeNotFound, "open routine %s", path).WithCause(err)
	}
	defer f.Close()
	return l.Load(ctx, f, FormatOf(path))
}

// Load decodes a document, selects the routine with the configured query,
// validates it and converts it into a graph.
func (l *Loader) Load(ctx context.Context, r io.Reader, format Format) (schema.Graph, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return schema.Graph{}, schema.NewError(schema.ErrCodeDocument, "read routine document").WithCause(err)
	}

	doc, err := decode(raw, format)
	if err != nil {
		return schema.Graph{}, err
	}

	doc, err = l.selector.Select(ctx, l.query, doc)
	if err != nil {
		return schema.Graph{}, err
	}

	if l.validator != nil {
		if err := l.validator.Validate(doc); err != nil {
			return schema.Graph{}, err
		}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return schema.Graph{}, schema.NewError(schema.ErrCodeDocument, "re-encode routine").WithCause(err)
	}
	var g schema.Graph
	if err := json.Unmarshal(b, &g); err != nil {
		return schema.Graph{}, schema.NewErrorf(schema.ErrCodeDocument, "decode routine: %s", err.Error()).WithCause(err)
	}

	l.logger.DebugContext(ctx, "routine loaded",
		slog.String("routine_id", g.RoutineID),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
		slog.String("format", string(format)),
	)
	return g, nil
}

func decode(raw []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeDocument, "parse YAML: %s", err.Error()).WithCause(err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeDocument, "parse JSON: %s", err.Error()).WithCause(err)
		}
	default:
		return nil, schema.NewErrorf(schema.ErrCodeDocument, "unsupported format %q", format)
	}
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeDocument, "routine document is empty")
	}
	return doc, nil
}

// Encode writes v as indented JSON or as YAML. Values are encoded through
// their JSON form so YAML output uses the same field names.
func Encode(w io.Writer, v any, format Format) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format != FormatYAML {
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlValue(generic)); err != nil {
		return err
	}
	return enc.Close()
}

// yamlValue turns json.Number into int64 or float64 so YAML prints plain scalars.
func yamlValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, e := range val {
			val[k] = yamlValue(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = yamlValue(e)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}

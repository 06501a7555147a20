package document

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/routinegraph/pkg/schema"
)

// Selector extracts the routine object from a larger payload with a jq
// query, e.g. ".data.routine" for a GraphQL response. Compiled queries
// are cached and safe for concurrent use.
type Selector struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewSelector creates an empty selector.
func NewSelector() *Selector {
	return &Selector{cache: make(map[string]*gojq.Code)}
}

// Select runs query against doc. The query must produce exactly one value.
func (s *Selector) Select(ctx context.Context, query string, doc any) (any, error) {
	if query == "" || query == "." {
		return doc, nil
	}
	code, err := s.getOrCompile(query)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, normalize(doc))
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeDocument,
				"jq query %q failed: %s", query, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"query": query})
		}
		results = append(results, v)
	}

	switch len(results) {
	case 1:
		if results[0] == nil {
			return nil, schema.NewErrorf(schema.ErrCodeDocument, "jq query %q selected null", query)
		}
		return results[0], nil
	case 0:
		return nil, schema.NewErrorf(schema.ErrCodeDocument, "jq query %q selected nothing", query)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeDocument,
			"jq query %q selected %d values, want one routine", query, len(results))
	}
}

func (s *Selector) getOrCompile(query string) (*gojq.Code, error) {
	s.mu.RLock()
	if code, ok := s.cache[query]; ok {
		s.mu.RUnlock()
		return code, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if code, ok := s.cache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeDocument,
			"jq parse error in %q: %s", query, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}
	code, err := gojq.Compile(parsed,
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeDocument,
			"jq compile error in %q: %s", query, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}

	s.cache[query] = code
	return code, nil
}

// normalize converts YAML-decoded values into the types gojq accepts:
// map[string]any, []any, float64 and int.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

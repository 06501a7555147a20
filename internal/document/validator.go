package document

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/routinegraph/pkg/schema"
)

// Validator checks decoded routine documents against the routine JSON
// Schema (draft 2020-12). It is safe for concurrent use.
type Validator struct {
	routine *jsonschema.Schema
}

// NewValidator compiles the embedded routine schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(routineSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal routine schema: %w", err)
	}
	if err := c.AddResource(routineSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add routine schema resource: %w", err)
	}
	compiled, err := c.Compile(routineSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile routine schema: %w", err)
	}
	return &Validator{routine: compiled}, nil
}

// Validate checks a decoded document (maps, slices and scalars) against
// the schema, then checks that node and link IDs are unique.
func (v *Validator) Validate(doc any) error {
	value, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeDocument, "document is not JSON-compatible").WithCause(err)
	}
	if err := v.routine.Validate(value); err != nil {
		return toRoutineError(err)
	}
	return uniqueIDs(value)
}

// uniqueIDs rejects documents reusing a node or link ID. The schema has
// already guaranteed the shape.
func uniqueIDs(value any) error {
	root, _ := value.(map[string]any)
	for _, field := range []string{"nodes", "links"} {
		list, _ := root[field].([]any)
		seen := make(map[string]struct{}, len(list))
		for _, entry := range list {
			obj, _ := entry.(map[string]any)
			id, _ := obj["id"].(string)
			if _, dup := seen[id]; dup {
				return schema.NewErrorf(schema.ErrCodeValidation, "duplicate %s id %q", strings.TrimSuffix(field, "s"), id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// toJSONValue round-trips a value through JSON so numbers become
// json.Number, as the schema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toRoutineError flattens a ValidationError into one message per violated
// leaf, each prefixed with its instance location.
func toRoutineError(err error) *schema.RoutineError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	case 1:
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "document is invalid with %d errors", len(violations)).
			WithDetails(map[string]any{"violations": violations})
	}
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		return []string{fmt.Sprintf("/%s: %s", strings.Join(verr.InstanceLocation, "/"), verr.Error())}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

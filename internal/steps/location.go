package steps

import (
	"strconv"
	"strings"

	"github.com/rendis/routinegraph/pkg/schema"
)

// MaxDepth is the deepest nesting a Location may address.
const MaxDepth = 20

// Location addresses a step as the 1-based child indices leading to it
// from the tree root. The empty location is the root itself.
type Location []int

// Equal reports whether two locations address the same step.
func (l Location) Equal(other Location) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the location.
func (l Location) Clone() Location {
	if l == nil {
		return nil
	}
	return append(Location(nil), l...)
}

// String renders the location as dot-separated indices, e.g. "2.1".
func (l Location) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// ParseLocation parses the String form of a location.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > MaxDepth {
		return nil, schema.NewErrorf(schema.ErrCodeLocation, "location %q is deeper than %d", s, MaxDepth)
	}
	loc := make(Location, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 1 {
			return nil, schema.NewErrorf(schema.ErrCodeLocation, "location %q has an invalid index %q", s, p)
		}
		loc[i] = v
	}
	return loc, nil
}

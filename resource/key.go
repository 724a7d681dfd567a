package resource

import (
	"encoding/json"
	"fmt"
	"strings"
)

// A Key is the natural key of an item: the values of its kind's key fields,
// in the field order of the kind.
type Key []string

// String joins the key parts with a slash. Empty parts are omitted.
func (k Key) String() string {
	parts := make([]string, 0, len(k))
	for _, p := range k {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// Equal reports whether two keys have the same parts.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the key as an array of strings.
func (k Key) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(k))
}

// id uniquely identifies the key within a kind.
func (k Key) id() string { return strings.Join(k, "\x00") }

// A Location is a position in an input file.
type Location struct {
	File   string
	Line   int
	Column int
}

// IsSet reports whether the location points anywhere.
func (l Location) IsSet() bool { return l.File != "" || l.Line > 0 }

func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

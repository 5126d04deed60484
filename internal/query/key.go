package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies one cached query, e.g. Key{"tables"} or Key{"tables", "detail", 7}.
// Two keys address the same entry when their JSON encodings are equal, so
// int 7 and int64 7 are the same element.
type Key []any

// String returns the canonical encoding used to address cache entries.
func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

// HasPrefix reports whether k starts with every element of prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	return hasPrefix(k.parts(), prefix.parts())
}

// Equal reports structural equality.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

func (k Key) parts() []string {
	parts := make([]string, len(k))
	for i, elem := range k {
		parts[i] = encodeElem(elem)
	}
	return parts
}

func encodeElem(elem any) string {
	raw, err := json.Marshal(elem)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(elem))
	}
	return string(raw)
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}

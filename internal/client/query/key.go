package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cache entry: a resource name followed by optional
// identifiers, e.g. Key{"challenge", 42}. Parts are compared by their JSON
// encoding, so 42 and int64(42) address the same entry.
type Key []any

// Hash returns the canonical string form of k.
func (k Key) Hash() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprint([]any(k))
	}
	return string(b)
}

// HasPrefix reports whether the leading parts of k equal prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if partHash(k[i]) != partHash(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) String() string { return k.Hash() }

func partHash(p any) string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprint(p)
	}
	return string(b)
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}

// Package id generates and formats item and bucket identifiers.
package id

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Kind distinguishes the identifier namespaces
type Kind string

const (
	KindItem   Kind = "item"
	KindBucket Kind = "bucket"
)

// Generator produces a new identifier for the given kind
type Generator func(kind Kind) string

// New returns a random lowercase UUIDv4, ignoring kind
func New(Kind) string {
	return uuid.NewString()
}

// Sequential returns a deterministic generator producing "<kind>-1",
// "<kind>-2", ... per kind. Safe for concurrent use.
func Sequential() Generator {
	var mu sync.Mutex
	counters := map[Kind]int{}
	return func(kind Kind) string {
		mu.Lock()
		defer mu.Unlock()
		counters[kind]++
		return fmt.Sprintf("%s-%d", kind, counters[kind])
	}
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// Short returns the first eight characters of a UUID for display.
// Non-UUID identifiers are returned unchanged.
func Short(s string) string {
	if IsUUID(s) {
		return s[:8]
	}
	return s
}

// MatchPrefix returns the single candidate that equals or starts with
// prefix. It errors when no candidate or more than one candidate matches.
func MatchPrefix(prefix string, candidates []string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("empty identifier")
	}
	var matches []string
	for _, c := range candidates {
		if c == prefix {
			return c, nil
		}
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no match for %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous identifier %q matches %d records", prefix, len(matches))
	}
}

// Package resolver expands short event ID prefixes into full UUIDs.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MinPrefixLength is the shortest prefix accepted.
const MinPrefixLength = 6

// maxListed caps how many candidates an ambiguity message prints.
const maxListed = 10

// EventIndex is the part of the journal the resolver needs.
type EventIndex interface {
	ScanEventIDs(ctx context.Context, prefix string) ([]string, error)
}

// NotFoundError means no event ID starts with Prefix.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no events found matching '%s'", e.Prefix)
}

// AmbiguousError means more than one event ID starts with Prefix.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous event ID '%s' matches %d events", e.Prefix, len(e.Matches))
}

// Candidates renders the matching IDs one per line, truncated after ten.
func (e *AmbiguousError) Candidates() string {
	var b strings.Builder
	for i, id := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%s\n", id)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ResolveEventID returns the single event ID that starts with prefix.
// A full UUID is returned unchanged without consulting the index.
func ResolveEventID(ctx context.Context, index EventIndex, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	if _, err := uuid.Parse(prefix); err == nil && len(prefix) == 36 {
		return prefix, nil
	}

	if len(prefix) < MinPrefixLength {
		return "", fmt.Errorf("event ID prefix must be at least %d characters (got %d)", MinPrefixLength, len(prefix))
	}

	matches, err := index.ScanEventIDs(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to search for event: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Prefix: prefix, Matches: matches}
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

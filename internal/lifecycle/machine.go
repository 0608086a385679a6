// Package lifecycle holds the status state machines of audited records.
package lifecycle

import (
	"fmt"
	"time"

	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type machine[S ~string] struct {
	name  string
	edges map[S][]S
}

func (m machine[S]) allows(from, to S) bool {
	for _, next := range m.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (m machine[S]) check(from, to S) error {
	if m.allows(from, to) {
		return nil
	}
	return invalid(fmt.Sprintf("%s cannot move from %s to %s", m.name, from, to))
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, message)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Package idgen mints short human-facing identifiers and rejects ones
// already in use.
package idgen

import (
	"context"
	"fmt"
	"math/rand"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

const defaultAttempts = 5

// TakenFunc reports whether candidate is already in use.
type TakenFunc func(ctx context.Context, candidate int) (bool, error)

// Minter draws candidates uniformly from [Min, Max] and checks them with a TakenFunc.
type Minter struct {
	Min      int
	Max      int
	Attempts int
	IntN     func(n int) int
}

// Mint returns the first free candidate. It gives up with CONFLICT after
// Attempts collisions; a failing TakenFunc aborts immediately.
func (m Minter) Mint(ctx context.Context, taken TakenFunc) (int, error) {
	if m.Max < m.Min {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("invalid id range [%d, %d]", m.Min, m.Max))
	}
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	intn := m.IntN
	if intn == nil {
		intn = rand.Intn
	}

	span := m.Max - m.Min + 1
	for i := 0; i < attempts; i++ {
		candidate := m.Min + intn(span)
		if taken == nil {
			return candidate, nil
		}
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if !inUse {
			return candidate, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a free identifier").
		WithDetails(map[string]any{"attempts": attempts, "min": m.Min, "max": m.Max})
}

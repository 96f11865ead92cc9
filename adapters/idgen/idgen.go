// Package idgen provides ports.IDGenerator implementations.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/accrue/ports"
)

// UUID generates time-ordered UUIDv7 identifiers.
type UUID struct{}

// New generates a new UUID. Falls back to v4 if the v7 clock read fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates zero-padded sequential IDs for tests.
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next ID, e.g. "rate-000001".
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return fmt.Sprintf("%s%06d", s.prefix, n)
}

var _ ports.IDGenerator = (*Sequential)(nil)

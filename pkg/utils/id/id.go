// Package id provides unique ID generation utilities for Nyx.
//
// Documents, chunks and request ids are ULIDs: lexicographically sortable,
// so ordering by id matches ordering by creation time.
//
// Usage:
//
//	docID := id.NewULID() // e.g., "01ARZ3NDEKTSV4RRFFQ69G5FAV"
//
//	gen := id.NewULIDGenerator()
//	ids := gen.GenerateN(3)
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string

	// GenerateN creates n unique IDs.
	GenerateN(n int) []string
}

// ULIDGenerator generates monotonic ULIDs. Safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// ULIDOption configures a ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithTimeFunc overrides the clock, mainly for tests.
func WithTimeFunc(f func() time.Time) ULIDOption {
	return func(g *ULIDGenerator) {
		g.now = f
	}
}

// NewULIDGenerator creates a generator backed by crypto/rand with
// monotonic entropy within the same millisecond.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// GenerateN creates n ULID strings in ascending order.
func (g *ULIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.Generate()
	}
	return ids
}

var (
	defaultULID *ULIDGenerator
	initOnce    sync.Once
)

// NewULID generates a ULID with the default generator.
func NewULID() string {
	initOnce.Do(func() {
		defaultULID = NewULIDGenerator()
	})
	return defaultULID.Generate()
}

// ParseULID validates s and returns the embedded timestamp.
func ParseULID(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, ErrInvalidULID
	}
	return ulid.Time(u.Time()), nil
}

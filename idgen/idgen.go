// Package idgen provides the deterministic id factory injected into the
// simulator, grounded on internal/modules/backtest/engine.go's
// rand.Seed(seed) determinism pattern and libs/trading/executor.go's
// direct use of github.com/google/uuid for domain ids.
package idgen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Factory generates ids for events and domain entities.
type Factory interface {
	Generate() string
}

// UUIDFactory generates UUIDv4 strings from a seeded random source, so
// two runs started with the same seed produce byte-identical id
// sequences.
type UUIDFactory struct {
	rnd *rand.Rand
}

// NewUUIDFactory seeds the factory. The same seed always yields the same
// sequence of ids.
func NewUUIDFactory(seed int64) *UUIDFactory {
	return &UUIDFactory{rnd: rand.New(rand.NewSource(seed))}
}

func (f *UUIDFactory) Generate() string {
	id, err := uuid.NewRandomFromReader(f.rnd)
	if err != nil {
		// math/rand.Rand.Read never errors, but fall back the way
		// libs/observability/id.go does rather than panic on id
		// generation alone.
		return fmt.Sprintf("id-%d", time.Now().UnixNano())
	}
	return id.String()
}

// Sequential generates predictable, human-readable ids ("<prefix>-1",
// "<prefix>-2", ...) for tests that assert on exact event payloads without caring
// about id format.
type Sequential struct {
	prefix string
	next   int
}

func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (s *Sequential) Generate() string {
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}

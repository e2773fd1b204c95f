package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces identifiers for tree nodes.
type Generator interface {
	NewID() string
}

// shortLen is the number of hex characters kept from a uuid.
const shortLen = 12

// UUID generates short opaque IDs from random v4 uuids.
type UUID struct{}

func (UUID) NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:shortLen]
}

// Default is the generator used when none is supplied.
var Default Generator = UUID{}

// Sequence generates predictable IDs ("prefix-1", "prefix-2", ...).
// Useful in tests and fixtures.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRevisionID returns a ulid. Revision IDs sort lexicographically by
// creation time.
func NewRevisionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

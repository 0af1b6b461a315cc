// Package id generates time-sortable transaction identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces monotonic ULIDs. IDs created within the same
// millisecond stay lexicographically increasing, so log order and id order
// agree within a session.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator seeds a monotonic entropy source from crypto/rand.
func NewGenerator() *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// New returns a ULID string for the given instant.
func (g *Generator) New(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at.UTC()), g.entropy)
	if err != nil {
		// Only possible if entropy is exhausted within one millisecond.
		panic(err)
	}
	return id.String()
}

// Parse extracts the embedded timestamp from an id produced by New.
func Parse(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()), nil
}

package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonicWithinMillisecond(t *testing.T) {
	g := NewGenerator()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := g.New(at)
	for i := 0; i < 100; i++ {
		next := g.New(at)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestParseRoundTripsTimestamp(t *testing.T) {
	g := NewGenerator()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := Parse(g.New(at))
	require.NoError(t, err)
	assert.True(t, got.Equal(at))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-ulid")
	assert.Error(t, err)
}

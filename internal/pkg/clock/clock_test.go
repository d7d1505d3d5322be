package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(t0)
	assert.Equal(t, t0, f.Now())

	assert.Equal(t, t0.Add(time.Minute), f.Advance(time.Minute))
	assert.Equal(t, t0.Add(time.Minute), f.Now())

	f.Set(t0)
	assert.Equal(t, t0, f.Now())
}

func TestReal_IsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Real{}.Now().Location())
}

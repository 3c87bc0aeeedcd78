package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("identity",
		WithFailureThreshold(2),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	assert.True(t, b.Allow())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure(), "second failure opens")
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "cooldown elapsed admits a probe")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one probe")

	assert.True(t, b.RecordFailure(), "failed probe reopens")
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.True(t, b.RecordSuccess(), "successful probe closes")
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New("x", WithFailureThreshold(2))
	b.RecordFailure()
	assert.False(t, b.RecordSuccess())
	assert.False(t, b.RecordFailure(), "count restarted")
	assert.Equal(t, "closed", b.State().String())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	b.Reset()
	assert.True(t, b.Allow())
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceFiresDueTimers(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	var fired []string
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(30*time.Second, func() { fired = append(fired, "b") })

	c.Advance(15 * time.Second)
	assert.Equal(t, []string{"a"}, fired)
	assert.Equal(t, 1, c.Pending())

	c.Advance(20 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_StopIsIdempotentAndPreventsFire(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(5*time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop(), "second Stop must be a no-op, not an error")

	c.Advance(time.Minute)
	assert.False(t, fired, "cancelled timer must never fire")
}

func TestFake_NowOnlyMovesOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
}

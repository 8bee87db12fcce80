package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdvance_FixedWindowSequence(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	size := 60 * time.Second

	var (
		w         *Window
		limited   []bool
		remaining []int
	)
	for i := 0; i < 4; i++ {
		next := Advance(w, now.Add(time.Duration(i)*time.Second), size)
		w = &next
		r := Evaluate(next, 3)
		limited = append(limited, r.Limited)
		remaining = append(remaining, r.Remaining)
		assert.Equal(t, now.Add(size), r.ResetAt, "resetAt must not move inside the window")
	}

	assert.Equal(t, []bool{false, false, false, true}, limited)
	assert.Equal(t, []int{2, 1, 0, 0}, remaining)
}

func TestAdvance_ResetsAtWindowEnd(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := Window{Count: 7, ResetAt: now}

	// resetAt <= now já conta como expirada
	next := Advance(&w, now, time.Minute)
	assert.Equal(t, 1, next.Count)
	assert.Equal(t, now.Add(time.Minute), next.ResetAt)

	still := Advance(&Window{Count: 7, ResetAt: now.Add(time.Millisecond)}, now, time.Minute)
	assert.Equal(t, 8, still.Count)
}

func TestResult_RetryAfterRoundsUp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := Result{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2*time.Second, r.RetryAfter(now))
	assert.Zero(t, r.RetryAfter(now.Add(time.Hour)))
}

func TestStatsEvent_OutcomeAndRoute(t *testing.T) {
	ev := StatsEvent{Allowed: true, Method: "GET", Path: "/5"}
	assert.Equal(t, "allowed", ev.Outcome())
	assert.Equal(t, "GET /5", ev.Route())

	ev = StatsEvent{}
	assert.Equal(t, "denied", ev.Outcome())
	assert.Equal(t, "", ev.Route())
}

package health

import (
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_OverallStatus(t *testing.T) {
	ok := func() error { return nil }
	fail := func() error { return errors.New("adapter mongodb_app not ready") }

	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{name: "no checks", checks: nil, want: StatusHealthy},
		{name: "all healthy", checks: map[string]CheckFunc{"a": ok, "b": ok}, want: StatusHealthy},
		{name: "some unhealthy", checks: map[string]CheckFunc{"a": ok, "b": fail}, want: StatusDegraded},
		{name: "all unhealthy", checks: map[string]CheckFunc{"a": fail, "b": fail}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, fn := range tt.checks {
				c.RunCheck(name, fn)
			}
			assert.Equal(t, tt.want, c.GetOverallStatus())
		})
	}
}

func TestChecker_ChecksAndLastHealthy(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start)
	c := NewCheckerWithClock(clk)

	clk.Advance(time.Minute)
	c.RunCheck("b", func() error { return nil })
	assert.Equal(t, start.Add(time.Minute), c.GetLastHealthyTime())

	clk.Advance(time.Minute)
	c.RunCheck("a", func() error { return errors.New("down") })
	assert.Equal(t, start.Add(time.Minute), c.GetLastHealthyTime())

	checks := c.GetAllChecks()
	require.Len(t, checks, 2)
	assert.Equal(t, "a", checks[0].Name)
	assert.Equal(t, StatusUnhealthy, checks[0].Status)
	assert.Equal(t, "down", checks[0].Message)
	assert.Equal(t, "OK", checks[1].Message)

	c.Remove("a")
	assert.Equal(t, StatusHealthy, c.GetOverallStatus())
}

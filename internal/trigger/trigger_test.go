// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mavproxy/internal/rules"
)

func newTestStore(t *testing.T, rs ...*rules.Rule) *rules.Store {
	t.Helper()
	s, err := rules.NewStore(rs)
	require.NoError(t, err)
	return s
}

func TestFireActivatesAndDeactivatesImmediately(t *testing.T) {
	armed := rules.NewRule("armed-only", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, false)
	standby := rules.NewRule("standby-only", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	cause := rules.NewRule("cause", "", 5, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	cause.Trigger = &rules.TriggerSpec{
		OnMatch:         true,
		ActivateRules:   []string{"armed-only"},
		DeactivateRules: []string{"standby-only"},
	}
	store := newTestStore(t, armed, standby, cause)
	eng := NewEngine(store)

	eng.Fire(cause)

	assert.True(t, armed.Enabled())
	assert.False(t, standby.Enabled())
}

func TestFireWithDurationExpiresAfterWindow(t *testing.T) {
	target := rules.NewRule("timed", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, false)
	cause := rules.NewRule("cause", "", 5, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	duration := 10.0
	cause.Trigger = &rules.TriggerSpec{OnMatch: true, ActivateRules: []string{"timed"}, DurationSeconds: &duration}

	store := newTestStore(t, target, cause)
	eng := NewEngine(store)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return start }
	eng.Fire(cause)
	assert.True(t, target.Enabled())

	expired := eng.reap(start.Add(5 * time.Second))
	assert.Empty(t, expired)
	assert.True(t, target.Enabled())

	expired = eng.reap(start.Add(11 * time.Second))
	assert.Equal(t, []string{"timed"}, expired)
	assert.False(t, target.Enabled())
}

func TestReactivationResetsExpiry(t *testing.T) {
	target := rules.NewRule("timed", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, false)
	cause := rules.NewRule("cause", "", 5, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	duration := 10.0
	cause.Trigger = &rules.TriggerSpec{OnMatch: true, ActivateRules: []string{"timed"}, DurationSeconds: &duration}

	store := newTestStore(t, target, cause)
	eng := NewEngine(store)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return start }
	eng.Fire(cause)

	eng.now = func() time.Time { return start.Add(8 * time.Second) }
	eng.Fire(cause) // reactivate before expiry: window resets from here

	expired := eng.reap(start.Add(12 * time.Second))
	assert.Empty(t, expired, "reactivation at +8s should push expiry to +18s")
	assert.True(t, target.Enabled())
}

func TestActivationWithoutDurationNeverExpires(t *testing.T) {
	target := rules.NewRule("permanent", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, false)
	cause := rules.NewRule("cause", "", 5, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	cause.Trigger = &rules.TriggerSpec{OnMatch: true, ActivateRules: []string{"permanent"}}

	store := newTestStore(t, target, cause)
	eng := NewEngine(store)
	eng.Fire(cause)

	expired := eng.reap(eng.now().Add(24 * time.Hour))
	assert.Empty(t, expired)
	assert.True(t, target.Enabled())
}

func TestFireIgnoredWhenOnMatchFalse(t *testing.T) {
	target := rules.NewRule("t", "", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, false)
	cause := rules.NewRule("cause", "", 5, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	cause.Trigger = &rules.TriggerSpec{OnMatch: false, ActivateRules: []string{"t"}}

	store := newTestStore(t, target, cause)
	eng := NewEngine(store)
	eng.Fire(cause)

	assert.False(t, target.Enabled())
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInDueOrder(t *testing.T) {
	c := NewFake(epoch0)
	var order []string

	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, 0, c.Pending())
}

func TestFake_NowAtCallbackIsDueTime(t *testing.T) {
	c := NewFake(epoch0)
	var seen time.Time
	c.AfterFunc(90*time.Second, func() { seen = c.Now() })

	c.Advance(10 * time.Minute)
	require.Equal(t, epoch0.Add(90*time.Second), seen)
	require.Equal(t, epoch0.Add(10*time.Minute), c.Now())
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := NewFake(epoch0)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	c.Advance(time.Minute)
	require.False(t, fired)
	require.Equal(t, 0, c.Pending())
}

func TestFake_CallbackCanRearm(t *testing.T) {
	c := NewFake(epoch0)
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	require.Equal(t, 5, ticks)
	require.Equal(t, 0, c.Pending())
}

func TestFake_ZeroDelayFiresOnAdvanceZero(t *testing.T) {
	c := NewFake(epoch0)
	fired := false
	c.AfterFunc(0, func() { fired = true })
	require.False(t, fired)

	c.Advance(0)
	require.True(t, fired)
}

func TestFake_StopAfterFireReturnsFalse(t *testing.T) {
	c := NewFake(epoch0)
	timer := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	require.False(t, timer.Stop())
}

// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() with deterministic time control.
//
// Confirmation expiry is a pure function of wall-clock time, so every
// component that compares against expires_at accepts a Clock (or a
// time.Time produced by one) instead of calling time.Now directly.
package clock

import "time"

// Clock provides the current time and basic waiting primitives.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least duration d.
	Sleep(d time.Duration)
}

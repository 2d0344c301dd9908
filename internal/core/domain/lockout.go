package domain

import (
	"fmt"
	"time"
)

// LockoutState is the per-browser login bookkeeping.
type LockoutState struct {
	Attempts    int       `json:"attempts"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}

// Locked reports whether the lockout is still in force at now.
func (s LockoutState) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Expired reports whether a lockout was set and has elapsed at now.
func (s LockoutState) Expired(now time.Time) bool {
	return !s.LockedUntil.IsZero() && !now.Before(s.LockedUntil)
}

// Remaining returns how long the lockout still lasts at now.
func (s LockoutState) Remaining(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// LockoutError is returned while login submissions are blocked.
type LockoutError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	minutes := int(e.Remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many failed attempts, try again in %d minute(s)", minutes)
}

func (e *LockoutError) Unwrap() error { return ErrLockedOut }

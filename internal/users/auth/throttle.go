// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/tsundoku/internal/library"
)

// Policy holds the login throttling parameters.
//
// # States
//
// The state is derived from the user record, never stored as such:
//   - unlocked with no recent attempts,
//   - unlocked but throttled until the progressive delay elapses,
//   - locked until LockUntil.
type Policy struct {
	// MaxAttempts failures inside AttemptWindow lock the account.
	MaxAttempts int
	// LockoutDuration is how long a lock lasts.
	LockoutDuration time.Duration
	// AttemptWindow is the trailing span in which failures are counted.
	AttemptWindow time.Duration
	// Delays is the escalation table. Entry n-1 is the wait required after n recent failures.
	Delays []time.Duration
}

// DefaultPolicy returns 5 attempts per hour, a 15 minute lock and a 0/1/2/5/10s escalation.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
		AttemptWindow:   60 * time.Minute,
		Delays:          []time.Duration{0, time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second},
	}
}

// RequiredDelay returns the wait required after attemptCount recent failures.
// Counts beyond the table length reuse its last entry.
func (policy Policy) RequiredDelay(attemptCount int) time.Duration {
	if attemptCount <= 0 || len(policy.Delays) == 0 {
		return 0
	}
	index := min(attemptCount-1, len(policy.Delays)-1)
	return policy.Delays[index]
}

// RecentAttempts returns the attempts younger than the window, in stored order.
func (policy Policy) RecentAttempts(attempts []library.LoginAttempt, now time.Time) []library.LoginAttempt {
	cutoff := library.Millis(now) - policy.AttemptWindow.Milliseconds()

	recent := make([]library.LoginAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.Timestamp > cutoff {
			recent = append(recent, attempt)
		}
	}
	return recent
}

// LockRemaining reports how long the account stays locked at now.
func (policy Policy) LockRemaining(user *library.User, now time.Time) (time.Duration, bool) {
	if !user.IsLocked || user.LockUntil == 0 {
		return 0, false
	}
	remaining := library.FromMillis(user.LockUntil).Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

/*
Check decides whether an attempt may be evaluated at now.

Description: Applies, in order, the lock rejection, the lock expiry, the window
pruning and the progressive delay. The user record is updated in place (expired
lock cleared, old attempts pruned) but a rejection is never counted as an attempt.

Parameters:
  - user: *library.User
  - now: time.Time

Returns:
  - error: ACCOUNT_LOCKED (remaining minutes) or THROTTLED (remaining seconds), otherwise nil
*/
func (policy Policy) Check(user *library.User, now time.Time) error {

	// 1. Locked: reject without touching the attempt history
	if remaining, locked := policy.LockRemaining(user, now); locked {
		return errAccountLocked(remaining)
	}

	// 2. Expired lock: clear it
	if user.IsLocked {
		user.IsLocked = false
		user.LockUntil = 0
	}

	// 3. Sliding window
	user.LoginAttempts = policy.RecentAttempts(user.LoginAttempts, now)

	// 4. Progressive delay since the most recent failure
	if count := len(user.LoginAttempts); count > 0 {
		last := library.FromMillis(user.LoginAttempts[count-1].Timestamp)
		elapsed := now.Sub(last)
		if required := policy.RequiredDelay(count); elapsed < required {
			return errThrottled(required - elapsed)
		}
	}

	return nil
}

// RecordFailure appends a failed attempt and locks the account once the window holds MaxAttempts.
func (policy Policy) RecordFailure(user *library.User, now time.Time, ip string) {
	if ip == "" {
		ip = "unknown"
	}

	user.LoginAttempts = policy.RecentAttempts(user.LoginAttempts, now)
	user.LoginAttempts = append(user.LoginAttempts, library.LoginAttempt{
		Timestamp: library.Millis(now),
		IP:        ip,
	})

	if len(user.LoginAttempts) >= policy.MaxAttempts {
		user.IsLocked = true
		user.LockUntil = library.Millis(now.Add(policy.LockoutDuration))
	}
}

// RecordSuccess clears the attempt history and the lock.
func (policy Policy) RecordSuccess(user *library.User, now time.Time) {
	user.LoginAttempts = []library.LoginAttempt{}
	user.IsLocked = false
	user.LockUntil = 0
	user.LastSuccessfulLogin = library.Millis(now)
}

// Reset clears the attempt history and the lock without recording a login.
func (policy Policy) Reset(user *library.User) {
	user.LoginAttempts = []library.LoginAttempt{}
	user.IsLocked = false
	user.LockUntil = 0
}

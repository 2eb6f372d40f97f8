// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPolicy_RequiredDelayIsMonotonic(t *testing.T) {
	policy := DefaultPolicy()

	expected := []time.Duration{0, time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second}
	previous := time.Duration(0)
	for count := 1; count <= len(expected); count++ {
		delay := policy.RequiredDelay(count)
		assert.Equal(t, expected[count-1], delay, "attempt count %d", count)
		assert.GreaterOrEqual(t, delay, previous)
		previous = delay
	}

	assert.Zero(t, policy.RequiredDelay(0))
}

func TestPolicy_CheckLocked(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{
		IsLocked:      true,
		LockUntil:     library.Millis(epoch.Add(90 * time.Second)),
		LoginAttempts: []library.LoginAttempt{{Timestamp: library.Millis(epoch.Add(-time.Minute))}},
	}

	err := policy.Check(user, epoch)
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeAccountLocked, appErr.Code)
	assert.Equal(t, http.StatusLocked, appErr.HTTPStatus)
	assert.Equal(t, "Compte temporairement verrouillé. Réessayez dans 2 minute(s).", appErr.Message)

	// A rejection never touches the history.
	assert.Len(t, user.LoginAttempts, 1)
	assert.True(t, user.IsLocked)
}

func TestPolicy_CheckClearsExpiredLock(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{
		IsLocked:  true,
		LockUntil: library.Millis(epoch.Add(-time.Second)),
	}

	require.NoError(t, policy.Check(user, epoch))
	assert.False(t, user.IsLocked)
	assert.Zero(t, user.LockUntil)
}

func TestPolicy_CheckPrunesWindow(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{
		LoginAttempts: []library.LoginAttempt{
			{Timestamp: library.Millis(epoch.Add(-2 * time.Hour))},
			{Timestamp: library.Millis(epoch.Add(-time.Hour))},
			{Timestamp: library.Millis(epoch.Add(-59 * time.Minute))},
		},
	}

	require.NoError(t, policy.Check(user, epoch))
	assert.Len(t, user.LoginAttempts, 1)
}

func TestPolicy_CheckThrottles(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{
		LoginAttempts: []library.LoginAttempt{
			{Timestamp: library.Millis(epoch.Add(-10 * time.Second))},
			{Timestamp: library.Millis(epoch.Add(-5 * time.Second))},
			{Timestamp: library.Millis(epoch.Add(-1500 * time.Millisecond))},
		},
	}

	// Three recent failures require 2s; 1.5s elapsed.
	err := policy.Check(user, epoch)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeThrottled, appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.HTTPStatus)
	assert.Equal(t, 500*time.Millisecond, appErr.RetryAfter)
	assert.Equal(t, "Trop de tentatives. Attendez 1 seconde(s) avant de réessayer.", appErr.Message)
	assert.Len(t, user.LoginAttempts, 3)

	require.NoError(t, policy.Check(user, epoch.Add(time.Second)))
}

func TestPolicy_RecordFailureLocksAtThreshold(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{}

	for i := 0; i < policy.MaxAttempts-1; i++ {
		policy.RecordFailure(user, epoch.Add(time.Duration(i)*time.Minute), "1.2.3.4")
		assert.False(t, user.IsLocked)
	}

	now := epoch.Add(10 * time.Minute)
	policy.RecordFailure(user, now, "")
	assert.True(t, user.IsLocked)
	assert.Equal(t, library.Millis(now.Add(15*time.Minute)), user.LockUntil)
	assert.Equal(t, "unknown", user.LoginAttempts[len(user.LoginAttempts)-1].IP)
}

func TestPolicy_RecordFailureIgnoresExpiredAttempts(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{}

	for i := 0; i < policy.MaxAttempts-1; i++ {
		policy.RecordFailure(user, epoch, "1.2.3.4")
	}

	// Outside the window the earlier failures no longer count.
	policy.RecordFailure(user, epoch.Add(61*time.Minute), "1.2.3.4")
	assert.False(t, user.IsLocked)
	assert.Len(t, user.LoginAttempts, 1)
}

func TestPolicy_RecordSuccessResets(t *testing.T) {
	policy := DefaultPolicy()
	user := &library.User{
		IsLocked:      true,
		LockUntil:     library.Millis(epoch),
		LoginAttempts: []library.LoginAttempt{{Timestamp: library.Millis(epoch)}},
	}

	policy.RecordSuccess(user, epoch)
	assert.Empty(t, user.LoginAttempts)
	assert.False(t, user.IsLocked)
	assert.Zero(t, user.LockUntil)
	assert.Equal(t, library.Millis(epoch), user.LastSuccessfulLogin)
}

// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the single-password authentication of the library.

It guards the stored credential with a throttling state machine (sliding attempt
window, progressive delay, timed lockout) and issues a signed session cookie on
success.

Architecture:

  - Policy: Pure state transitions over the user record.
  - Service: Runs a policy check, the password comparison and the bookkeeping
    inside one repository update, then issues the session.
  - Handler: Cookie handling and the category-specific error responses.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/ctxutil"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
	"github.com/taibuivan/tsundoku/internal/platform/validate"
)

// # Contracts & Types

// SessionIssuer defines the contract for issuing signed session tokens.
type SessionIssuer interface {
	// Issue returns a signed token for subject and its expiry.
	Issue(subject string) (string, time.Time, error)
}

// Service implements the authentication use cases.
type Service struct {
	repository library.Repository
	policy     Policy
	sessions   SessionIssuer
	now        func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(repository library.Repository, policy Policy, sessions SessionIssuer) *Service {
	return &Service{
		repository: repository,
		policy:     policy,
		sessions:   sessions,
		now:        time.Now,
	}
}

// # Authentication Flow

// LoginInput defines an authentication attempt.
type LoginInput struct {
	Password  string
	IPAddress string
}

// Session represents a successfully established session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

/*
Login validates the password and issues a session.

Description: The throttle check, the constant-time comparison and the attempt
bookkeeping run inside a single repository update, so concurrent attempts are
evaluated one after the other.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Signed session token
  - error: INCORRECT_PASSWORD, ACCOUNT_LOCKED, THROTTLED or storage failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return nil, errIncorrectPassword("Mot de passe incorrect")
	}

	var outcome error
	err := service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		now := service.now()

		if err := service.policy.Check(user, now); err != nil {
			outcome = err
			return nil
		}

		if !sec.CheckPasswordHash(password, user.PasswordHash) {
			service.policy.RecordFailure(user, now, input.IPAddress)
			outcome = errIncorrectPassword("Mot de passe incorrect")
			return nil
		}

		service.policy.RecordSuccess(user, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}

	if outcome != nil {
		ctxutil.Logger(context).WarnContext(context, "auth_login_rejected",
			slog.String("ip", input.IPAddress),
			slog.String("code", apperr.As(outcome).Code),
		)
		return nil, outcome
	}

	token, expiresAt, err := service.sessions.Issue(constants.LibraryUser)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_issue_failed: %w", err)
	}

	ctxutil.Logger(context).InfoContext(context, "auth_login_succeeded", slog.String("ip", input.IPAddress))

	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// # Credential Management

// ChangePasswordInput holds the data required to rotate the password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	IPAddress       string
}

/*
ChangePassword verifies the current password and stores a new one.

Description: The current password goes through the same lock and delay checks as
a login. A wrong current password counts as a failed attempt; success resets the
attempt history exactly like a successful login.

Parameters:
  - context: context.Context
  - input: ChangePasswordInput

Returns:
  - error: VALIDATION_ERROR, INCORRECT_PASSWORD, ACCOUNT_LOCKED, THROTTLED or storage failures
*/
func (service *Service) ChangePassword(context context.Context, input ChangePasswordInput) error {
	current := strings.TrimSpace(input.CurrentPassword)
	next := strings.TrimSpace(input.NewPassword)

	if current == "" || next == "" {
		return apperr.ValidationError("Les mots de passe ne peuvent pas être vides")
	}
	if err := validateNewPassword(next); err != nil {
		return err
	}

	nextHash, err := sec.HashPassword(next)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	var outcome error
	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		now := service.now()

		if err := service.policy.Check(user, now); err != nil {
			outcome = err
			return nil
		}

		if !sec.CheckPasswordHash(current, user.PasswordHash) {
			service.policy.RecordFailure(user, now, input.IPAddress)
			outcome = errIncorrectPassword("Mot de passe actuel incorrect")
			return nil
		}

		user.PasswordHash = nextHash
		service.policy.RecordSuccess(user, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	return outcome
}

/*
SetPassword replaces the password without verifying the current one.

Description: Maintenance path for operators with access to the data file. It also
lifts any lock.

Parameters:
  - context: context.Context
  - password: string

Returns:
  - error: VALIDATION_ERROR or storage failures
*/
func (service *Service) SetPassword(context context.Context, password string) error {
	password = strings.TrimSpace(password)
	if err := validateNewPassword(password); err != nil {
		return err
	}

	hash, err := sec.HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth_service_set_password_hash_failed: %w", err)
	}

	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		user.PasswordHash = hash
		service.policy.Reset(user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_set_password_failed: %w", err)
	}
	return nil
}

/*
Unlock clears the lock and the attempt history.

Parameters:
  - context: context.Context

Returns:
  - error: Storage failures
*/
func (service *Service) Unlock(context context.Context) error {
	err := service.repository.Update(context, func(document *library.Document) error {
		service.policy.Reset(document.Admin())
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_unlock_failed: %w", err)
	}
	return nil
}

// # Security Overview

// SecurityInfo summarizes the throttle state for display.
type SecurityInfo struct {
	IsLocked             bool       `json:"isLocked"`
	RemainingLockMinutes int        `json:"remainingLockTime,omitempty"`
	RecentAttempts       int        `json:"recentAttempts"`
	LastSuccessfulLogin  *time.Time `json:"lastSuccessfulLogin,omitempty"`
}

/*
SecurityInfo reports the current lock state and recent failures.

Parameters:
  - context: context.Context

Returns:
  - *SecurityInfo: Read-only view of the throttle state
  - error: Storage failures
*/
func (service *Service) SecurityInfo(context context.Context) (*SecurityInfo, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_security_info_failed: %w", err)
	}

	user := document.Admin()
	now := service.now()

	info := &SecurityInfo{
		RecentAttempts: len(service.policy.RecentAttempts(user.LoginAttempts, now)),
	}

	if remaining, locked := service.policy.LockRemaining(user, now); locked {
		info.IsLocked = true
		info.RemainingLockMinutes = int((remaining + time.Minute - 1) / time.Minute)
	}

	if user.LastSuccessfulLogin > 0 {
		last := library.FromMillis(user.LastSuccessfulLogin)
		info.LastSuccessfulLogin = &last
	}

	return info, nil
}

func validateNewPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		message := fmt.Sprintf("Le nouveau mot de passe doit contenir au moins %d caractères", MinPasswordLength)
		return validate.RequiredError(FieldNewPassword, message)
	}
	if len(password) > MaxPasswordBytes {
		message := fmt.Sprintf("Le nouveau mot de passe ne doit pas dépasser %d octets", MaxPasswordBytes)
		return validate.RequiredError(FieldNewPassword, message)
	}
	return nil
}

// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"math"
	"time"

	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
)

// # Password Constraints

const (
	// MinPasswordLength is the minimum rune count of a new password.
	MinPasswordLength = 6

	// MaxPasswordBytes is the maximum byte length of a new password.
	MaxPasswordBytes = sec.MaxPasswordBytes
)

// # Outcome Codes

// Each rejected login carries one of these codes so the client can pick its message and icon.
const (
	CodeIncorrectPassword = "INCORRECT_PASSWORD"
	CodeAccountLocked     = "ACCOUNT_LOCKED"
	CodeThrottled         = "THROTTLED"
)

// # Field Identifiers

const (
	FieldPassword        = "password"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
)

// # Error Constructors

func errIncorrectPassword(message string) *apperr.AppError {
	err := apperr.Unauthorized(message)
	err.Code = CodeIncorrectPassword
	return err
}

func errAccountLocked(remaining time.Duration) *apperr.AppError {
	minutes := int(math.Ceil(remaining.Minutes()))
	err := apperr.Locked(fmt.Sprintf("Compte temporairement verrouillé. Réessayez dans %d minute(s).", minutes), remaining)
	err.Code = CodeAccountLocked
	return err
}

func errThrottled(remaining time.Duration) *apperr.AppError {
	seconds := int(math.Ceil(remaining.Seconds()))
	err := apperr.RateLimited(fmt.Sprintf("Trop de tentatives. Attendez %d seconde(s) avant de réessayer.", seconds), remaining)
	err.Code = CodeThrottled
	return err
}

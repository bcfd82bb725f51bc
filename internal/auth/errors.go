// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import "errors"

// Error codes for business failures. These form a closed set: every error a
// Service operation returns for a caller mistake carries exactly one of them.
// Infrastructure failures (store unavailable, etc.) carry operation-specific
// codes and are not part of this taxonomy.
const (
	// CodeValidation marks a missing or blank required field. The error
	// context names the offending field.
	CodeValidation = "AUTH_VALIDATION"

	// CodeConflict marks a username or email uniqueness violation.
	CodeConflict = "AUTH_CONFLICT"

	// CodeTokenInvalid marks a verification token that is absent, malformed,
	// or already used. Used tokens are deliberately indistinguishable from
	// non-existent ones.
	CodeTokenInvalid = "AUTH_TOKEN_INVALID"

	// CodeTokenExpired marks a recognized verification token past its expiry.
	CodeTokenExpired = "AUTH_TOKEN_EXPIRED"

	// CodeNotActivated marks a login against an account that has not
	// completed email verification.
	CodeNotActivated = "AUTH_NOT_ACTIVATED"

	// CodeInvalidCredentials marks a bad username/email-or-password pair.
	// The message is identical whether the account is unknown or the
	// password is wrong, to avoid account enumeration.
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned by AccountRepository.Create when the
// username unique constraint is violated.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail is returned by AccountRepository.Create when the email
// unique constraint is violated.
var ErrDuplicateEmail = errors.New("email already exists")

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Account represents a registered identity with credentials and an
// activation flag. Username and email are unique case-insensitively; the
// stored email is always lowercase.
type Account struct {
	ID           ulid.ULID
	Username     string
	DisplayName  string
	Email        string
	Phone        string
	PasswordHash string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims surrounding whitespace and lowercases an email
// address. strings.ToLower applies Unicode simple case folding, which keeps
// normalization independent of the database collation.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount creates a validated Account. The email is normalized to
// lowercase; the account starts disabled and is activated only through
// email verification.
func NewAccount(username, displayName, email, phone, passwordHash string) (*Account, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	email = NormalizeEmail(email)
	phone = strings.TrimSpace(phone)

	for _, f := range []struct{ name, value string }{
		{"username", username},
		{"displayName", displayName},
		{"email", email},
		{"phone", phone},
	} {
		if f.value == "" {
			return nil, oops.Code(CodeValidation).
				With("field", f.name).
				Errorf("%s is required", f.name)
		}
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Enabled:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AccountRepository manages account persistence.
//
// Username and email lookups are case-insensitive. Create relies on storage
// level unique constraints: a concurrent signup racing past the Exists checks
// must still surface as ErrDuplicateUsername or ErrDuplicateEmail, never as a
// silently duplicated row.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateUsername or
	// ErrDuplicateEmail (wrapped) on a unique-constraint violation.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// ExistsByUsername reports whether any account holds the username,
	// compared case-insensitively.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether any account holds the email, compared
	// case-insensitively.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Enable flips the account's enabled flag to true. Returns ErrNotFound
	// if the account does not exist.
	Enable(ctx context.Context, id ulid.ULID) error
}

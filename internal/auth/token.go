// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification token configuration.
const (
	VerificationTokenBytes  = 32             // 32 bytes = 64 hex chars
	VerificationTokenExpiry = 24 * time.Hour // fixed verification window
)

// VerificationToken is a single-use, time-bounded secret proving email
// ownership. The plaintext secret is mailed to the account holder; only its
// SHA-256 hash is stored. Used transitions false→true exactly once and a
// used token never authorizes activation again.
type VerificationToken struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// NewVerificationToken creates a validated VerificationToken.
func NewVerificationToken(accountID ulid.ULID, tokenHash string, expiresAt time.Time) (*VerificationToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &VerificationToken{
		ID:        ulid.Make(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		Used:      false,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the token has expired.
func (t *VerificationToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the token would be expired at the given time.
// The boundary is exclusive: a token whose expiry equals the given instant
// is still valid.
func (t *VerificationToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// GenerateVerificationToken creates a secure random secret and its hash.
// Returns (plaintext_secret, sha256_hash, error). The plaintext secret is
// sent to the account holder; the hash is stored in the database.
func GenerateVerificationToken() (secret, hash string, err error) {
	secretBytes := make([]byte, VerificationTokenBytes)
	if _, err = rand.Read(secretBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", VerificationTokenBytes).
			Wrap(err)
	}

	secret = hex.EncodeToString(secretBytes)
	hash = HashVerificationToken(secret)

	return secret, hash, nil
}

// HashVerificationToken computes the SHA-256 hash of a token secret.
func HashVerificationToken(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// VerificationTokenRepository manages verification token persistence.
type VerificationTokenRepository interface {
	// Create stores a new verification token.
	Create(ctx context.Context, token *VerificationToken) error

	// GetUnusedByTokenHash retrieves an unused token by its secret hash.
	// Returns ErrNotFound if no unused token matches; a used token is
	// indistinguishable from a non-existent one.
	GetUnusedByTokenHash(ctx context.Context, tokenHash string) (*VerificationToken, error)

	// MarkUsed flips the token's used flag to true. Returns ErrNotFound if
	// the token does not exist.
	MarkUsed(ctx context.Context, id ulid.ULID) error
}

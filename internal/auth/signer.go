// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionExpiry is the session token lifetime when none is configured.
const DefaultSessionExpiry = 24 * time.Hour

// sessionIssuer is the iss claim stamped into every session token.
const sessionIssuer = "veril"

// SessionSigner issues opaque session credentials bound to an account
// identity. The credential is consumed by downstream request authentication,
// which is outside this package.
type SessionSigner interface {
	// Issue creates a session credential for the given account.
	Issue(accountID ulid.ULID, username string) (string, error)
}

// JWTSigner implements SessionSigner using HS256-signed JWTs.
type JWTSigner struct {
	secret []byte
	expiry time.Duration
}

// NewJWTSigner creates a JWTSigner. The secret must be non-empty; expiry <= 0
// falls back to DefaultSessionExpiry.
func NewJWTSigner(secret string, expiry time.Duration) (*JWTSigner, error) {
	if secret == "" {
		return nil, oops.Code("SIGNER_EMPTY_SECRET").Errorf("signing secret cannot be empty")
	}
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}
	return &JWTSigner{secret: []byte(secret), expiry: expiry}, nil
}

// Issue creates an HS256 JWT carrying the account ID and username.
func (s *JWTSigner) Issue(accountID ulid.ULID, username string) (string, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("SIGNER_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if username == "" {
		return "", oops.Code("SIGNER_INVALID_USERNAME").Errorf("username cannot be empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      sessionIssuer,
		"sub":      accountID.String(),
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.expiry).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("SIGNER_SIGN_FAILED").
			With("operation", "sign session token").
			Wrap(err)
	}
	return token, nil
}

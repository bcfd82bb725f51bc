// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/veril/veril/internal/auth"
)

// VerificationTokenRepository implements auth.VerificationTokenRepository
// using PostgreSQL.
type VerificationTokenRepository struct {
	db DB
}

// NewVerificationTokenRepository creates a new VerificationTokenRepository.
func NewVerificationTokenRepository(db DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

// Create stores a new verification token.
func (r *VerificationTokenRepository) Create(ctx context.Context, token *auth.VerificationToken) error {
	_, err := querierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO verification_tokens (
			id, account_id, token_hash, expires_at, used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.AccountID.String(),
		token.TokenHash,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert verification token").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetUnusedByTokenHash retrieves an unused token by its secret hash. Used
// tokens are scoped out of the query, which makes them indistinguishable
// from tokens that never existed.
func (r *VerificationTokenRepository) GetUnusedByTokenHash(ctx context.Context, tokenHash string) (*auth.VerificationToken, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, used, created_at
		FROM verification_tokens
		WHERE token_hash = $1 AND used = FALSE
	`, tokenHash)

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get unused token by hash").
			Wrap(err)
	}
	return token, nil
}

// MarkUsed flips the token's used flag to true. The used guard in the
// predicate keeps the flip monotonic: a token can never go back to unused,
// and marking an already-used token reports ErrNotFound.
func (r *VerificationTokenRepository) MarkUsed(ctx context.Context, id ulid.ULID) error {
	result, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE verification_tokens SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`, id.String())
	if err != nil {
		return oops.Code("TOKEN_MARK_USED_FAILED").
			With("operation", "mark token used").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanToken scans a single row into a VerificationToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanToken(row pgx.Row) (*auth.VerificationToken, error) {
	var (
		idStr        string
		accountIDStr string
		tokenHash    string
		expiresAt    time.Time
		used         bool
		createdAt    time.Time
	)

	err := row.Scan(&idStr, &accountIDStr, &tokenHash, &expiresAt, &used, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TOKEN_SCAN_FAILED").
			With("operation", "scan verification token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").
			With("operation", "parse token id").
			With("id", idStr).
			Wrap(err)
	}

	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT_ID").
			With("operation", "parse token account id").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &auth.VerificationToken{
		ID:        id,
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		Used:      used,
		CreatedAt: createdAt,
	}, nil
}

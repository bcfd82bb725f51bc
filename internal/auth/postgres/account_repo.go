// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/veril/veril/internal/auth"
)

// Unique index names from the migrations; Create uses them to tell a
// username collision from an email collision.
const (
	usernameUniqueIndex = "accounts_username_lower_idx"
	emailUniqueIndex    = "accounts_email_lower_idx"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
// Case-insensitive lookups use LOWER() expressions matching the functional
// unique indexes, so application code and constraints agree on folding.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. Unique-constraint violations are mapped to
// auth.ErrDuplicateUsername or auth.ErrDuplicateEmail so concurrent signups
// that race past the existence checks still surface as conflicts.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := querierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO accounts (
			id, username, display_name, email, phone,
			password_hash, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		account.ID.String(),
		account.Username,
		account.DisplayName,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.Enabled,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return oops.Code("ACCOUNT_DUPLICATE").
				With("username", account.Username).
				Wrap(dup)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// duplicateErr maps a unique violation to the matching sentinel, or nil when
// err is not a unique violation.
func duplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameUniqueIndex:
		return auth.ErrDuplicateUsername
	case emailUniqueIndex:
		return auth.ErrDuplicateEmail
	default:
		return auth.ErrDuplicateUsername
	}
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, username, display_name, email, phone,
		       password_hash, enabled, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, username, display_name, email, phone,
		       password_hash, enabled, created_at, updated_at
		FROM accounts
		WHERE LOWER(username) = LOWER($1)
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, username, display_name, email, phone,
		       password_hash, enabled, created_at, updated_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// ExistsByUsername reports whether any account holds the username,
// compared case-insensitively.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM accounts WHERE LOWER(username) = LOWER($1)
		)
	`, username).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check username exists").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// ExistsByEmail reports whether any account holds the email, compared
// case-insensitively.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1)
		)
	`, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check email exists").
			With("email", email).
			Wrap(err)
	}
	return exists, nil
}

// Enable flips the account's enabled flag to true.
func (r *AccountRepository) Enable(ctx context.Context, id ulid.ULID) error {
	result, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET enabled = TRUE, updated_at = $2
		WHERE id = $1
	`, id.String(), time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_ENABLE_FAILED").
			With("operation", "enable account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr        string
		username     string
		displayName  string
		email        string
		phone        string
		passwordHash string
		enabled      bool
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&idStr,
		&username,
		&displayName,
		&email,
		&phone,
		&passwordHash,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Account{
		ID:           id,
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Enabled:      enabled,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

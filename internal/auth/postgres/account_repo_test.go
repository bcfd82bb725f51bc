// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veril/veril/internal/auth"
)

func testAccount() *auth.Account {
	now := time.Now()
	return &auth.Account{
		ID:           ulid.Make(),
		Username:     "alice",
		DisplayName:  "Alice",
		Email:        "alice@example.com",
		Phone:        "+15550100",
		PasswordHash: "$argon2id$hash",
		Enabled:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountRows(a *auth.Account) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "display_name", "email", "phone",
		"password_hash", "enabled", "created_at", "updated_at",
	}).AddRow(
		a.ID.String(), a.Username, a.DisplayName, a.Email, a.Phone,
		a.PasswordHash, a.Enabled, a.CreatedAt, a.UpdatedAt,
	)
}

func uniqueViolation(constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

func TestAccountRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, a *auth.Account)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID.String(), a.Username, a.DisplayName, a.Email, a.Phone,
						a.PasswordHash, a.Enabled, a.CreatedAt, a.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "username unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID.String(), a.Username, a.DisplayName, a.Email, a.Phone,
						a.PasswordHash, a.Enabled, a.CreatedAt, a.UpdatedAt).
					WillReturnError(uniqueViolation("accounts_username_lower_idx"))
			},
			wantErr: auth.ErrDuplicateUsername,
		},
		{
			name: "email unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID.String(), a.Username, a.DisplayName, a.Email, a.Phone,
						a.PasswordHash, a.Enabled, a.CreatedAt, a.UpdatedAt).
					WillReturnError(uniqueViolation("accounts_email_lower_idx"))
			},
			wantErr: auth.ErrDuplicateEmail,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID.String(), a.Username, a.DisplayName, a.Email, a.Phone,
						a.PasswordHash, a.Enabled, a.CreatedAt, a.UpdatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			account := testAccount()
			tt.setupMock(mock, account)

			repo := NewAccountRepository(mock)
			err = repo.Create(context.Background(), account)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestAccountRepository_GetByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount()
		mock.ExpectQuery(`SELECT id, username, display_name, email, phone`).
			WithArgs("ALICE").
			WillReturnRows(accountRows(account))

		repo := NewAccountRepository(mock)
		got, err := repo.GetByUsername(context.Background(), "ALICE")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
		assert.Equal(t, account.Username, got.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, username, display_name, email, phone`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		repo := NewAccountRepository(mock)
		got, err := repo.GetByUsername(context.Background(), "ghost")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount()
		mock.ExpectQuery(`SELECT id, username, display_name, email, phone`).
			WithArgs("Alice@Example.com").
			WillReturnRows(accountRows(account))

		repo := NewAccountRepository(mock)
		got, err := repo.GetByEmail(context.Background(), "Alice@Example.com")
		require.NoError(t, err)
		assert.Equal(t, account.Email, got.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, username, display_name, email, phone`).
			WithArgs("ghost@example.com").
			WillReturnError(pgx.ErrNoRows)

		repo := NewAccountRepository(mock)
		got, err := repo.GetByEmail(context.Background(), "ghost@example.com")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	t.Run("invalid stored id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		rows := pgxmock.NewRows([]string{
			"id", "username", "display_name", "email", "phone",
			"password_hash", "enabled", "created_at", "updated_at",
		}).AddRow("not-a-ulid", "alice", "Alice", "alice@example.com", "+15550100",
			"hash", false, time.Now(), time.Now())
		mock.ExpectQuery(`SELECT id, username, display_name, email, phone`).
			WithArgs(id.String()).
			WillReturnRows(rows)

		repo := NewAccountRepository(mock)
		got, err := repo.GetByID(context.Background(), id)
		assert.Nil(t, got)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse account id")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Exists(t *testing.T) {
	t.Run("username exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		repo := NewAccountRepository(mock)
		exists, err := repo.ExistsByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email does not exist", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ghost@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		repo := NewAccountRepository(mock)
		exists, err := repo.ExistsByEmail(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Enable(t *testing.T) {
	t.Run("enables account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE accounts SET enabled = TRUE`).
			WithArgs(id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewAccountRepository(mock)
		require.NoError(t, repo.Enable(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account reports not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE accounts SET enabled = TRUE`).
			WithArgs(id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewAccountRepository(mock)
		err = repo.Enable(context.Background(), id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/veril/veril/pkg/errutil"
)

// Service provides the core authentication operations.
type Service struct {
	accounts AccountRepository
	tokens   VerificationTokenRepository
	tx       Transactor
	hasher   PasswordHasher
	signer   SessionSigner
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new Service with the default logger.
func NewService(
	accounts AccountRepository,
	tokens VerificationTokenRepository,
	tx Transactor,
	hasher PasswordHasher,
	signer SessionSigner,
	notifier Notifier,
) (*Service, error) {
	return NewServiceWithLogger(accounts, tokens, tx, hasher, signer, notifier, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(
	accounts AccountRepository,
	tokens VerificationTokenRepository,
	tx Transactor,
	hasher PasswordHasher,
	signer SessionSigner,
	notifier Notifier,
	logger *slog.Logger,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("accounts repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("tokens repository is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if signer == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session signer is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		signer:   signer,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is used when a login identifier doesn't resolve, so
// password verification still runs and response time stays consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SignupParams carries the raw, untrimmed signup input.
type SignupParams struct {
	Username    string
	DisplayName string
	Email       string
	Phone       string
	Password    string
}

// SignupResult is the outcome of a successful signup. No session token is
// issued at signup; the account stays disabled until email verification.
type SignupResult struct {
	Username string
	Email    string
	Message  string
}

// VerifyResult is the outcome of a successful email verification.
// Activated is false when the account had already been verified.
type VerifyResult struct {
	Username  string
	Email     string
	Activated bool
	Message   string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token    string
	Username string
	Email    string
	Message  string
}

// Signup registers a new disabled account, issues a verification token, and
// sends the verification mail best-effort. The account and token are written
// in one transaction; the notification runs after commit and its failure
// never affects the outcome.
func (s *Service) Signup(ctx context.Context, p SignupParams) (*SignupResult, error) {
	username := strings.TrimSpace(p.Username)
	email := NormalizeEmail(p.Email)

	if err := validateSignup(p); err != nil {
		return nil, err
	}

	// Pre-checks give friendly conflicts; the unique indexes are the
	// authority under concurrent signups.
	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "check username uniqueness").
			Wrap(err)
	}
	if taken {
		return nil, usernameConflict()
	}

	taken, err = s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "check email uniqueness").
			Wrap(err)
	}
	if taken {
		return nil, emailConflict()
	}

	// Hash the password exactly as submitted; only validation trims.
	passwordHash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(username, p.DisplayName, email, p.Phone, passwordHash)
	if err != nil {
		return nil, err
	}

	secret, tokenHash, err := GenerateVerificationToken()
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "generate verification token").
			Wrap(err)
	}

	token, err := NewVerificationToken(account.ID, tokenHash, time.Now().Add(VerificationTokenExpiry))
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		//nolint:wrapcheck // wrapped after the transaction resolves
		return s.tokens.Create(ctx, token)
	})
	if err != nil {
		// A signup that raced past the pre-checks still surfaces as a
		// conflict, not an opaque storage failure.
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			return nil, usernameConflict()
		case errors.Is(err, ErrDuplicateEmail):
			return nil, emailConflict()
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "persist account and token").
			With("username", account.Username).
			Wrap(err)
	}

	s.logger.Info("account created",
		"account_id", account.ID.String(),
		"username", account.Username)

	// Post-commit hook: best effort, isolated failure boundary.
	if notifyErr := s.notifier.NotifyVerification(ctx, account.Email, account.Username, secret); notifyErr != nil {
		errutil.LogError(s.logger, "verification notification failed, signup continues", notifyErr)
	}

	return &SignupResult{
		Username: account.Username,
		Email:    account.Email,
		Message:  "Signup successful. Please check your email to verify your account.",
	}, nil
}

func validateSignup(p SignupParams) error {
	for _, f := range []struct{ name, value string }{
		{"username", p.Username},
		{"displayName", p.DisplayName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"password", p.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			return oops.Code(CodeValidation).
				With("field", f.name).
				Errorf("%s is required", f.name)
		}
	}
	return nil
}

func usernameConflict() error {
	return oops.Code(CodeConflict).
		With("field", "username").
		Errorf("username exists")
}

func emailConflict() error {
	return oops.Code(CodeConflict).
		With("field", "email").
		Errorf("email exists")
}

// VerifyEmail consumes a verification token and activates the owning
// account. The unused-token lookup, account activation, and used-flag write
// run in one serializable transaction, so concurrent attempts with the same
// secret cannot both observe the pre-used state.
func (s *Service) VerifyEmail(ctx context.Context, tokenSecret string) (*VerifyResult, error) {
	secret := strings.TrimSpace(tokenSecret)
	if secret == "" {
		return nil, oops.Code(CodeValidation).
			With("field", "token").
			Errorf("token is required")
	}

	tokenHash := HashVerificationToken(secret)

	var result *VerifyResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		token, err := s.tokens.GetUnusedByTokenHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Used tokens are scoped out of the lookup, so "already
				// used" and "never existed" are the same failure here.
				return oops.Code(CodeTokenInvalid).
					Errorf("invalid verification token")
			}
			return oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "get unused token").
				Wrap(err)
		}

		if token.IsExpired() {
			// The token stays unused; it can never succeed later anyway.
			return oops.Code(CodeTokenExpired).
				Errorf("verification token has expired")
		}

		account, err := s.accounts.GetByID(ctx, token.AccountID)
		if err != nil {
			return oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "get token account").
				With("account_id", token.AccountID.String()).
				Wrap(err)
		}

		if account.Enabled {
			// Idempotent short-circuit: consume the token, leave the
			// account untouched.
			if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
				return oops.Code("AUTH_VERIFY_FAILED").
					With("operation", "mark token used").
					Wrap(err)
			}
			result = &VerifyResult{
				Username:  account.Username,
				Email:     account.Email,
				Activated: false,
				Message:   "Your account is already verified and activated.",
			}
			return nil
		}

		// Account mutation commits before the used flag in the same
		// transaction; a crash between them cannot strand a used token
		// on an un-enabled account.
		if err := s.accounts.Enable(ctx, account.ID); err != nil {
			return oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "enable account").
				With("account_id", account.ID.String()).
				Wrap(err)
		}
		if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
			return oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "mark token used").
				Wrap(err)
		}

		s.logger.Info("account activated",
			"account_id", account.ID.String(),
			"username", account.Username)

		result = &VerifyResult{
			Username:  account.Username,
			Email:     account.Email,
			Activated: true,
			Message:   "Email verified successfully. Your account is now activated.",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Login authenticates an account by username or email and issues a signed
// session token. The activation check runs before password verification, so
// an unverified account never leaks whether its password was correct.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" {
		return nil, oops.Code(CodeValidation).
			With("field", "usernameOrEmail").
			Errorf("usernameOrEmail is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, oops.Code(CodeValidation).
			With("field", "password").
			Errorf("password is required")
	}

	account, err := s.accounts.GetByUsername(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		account, err = s.accounts.GetByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Still burn a verification against the dummy hash so unknown
			// identifiers take as long as wrong passwords.
			_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing chaff only
			return nil, invalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "resolve account").
			Wrap(err)
	}

	if !account.Enabled {
		return nil, oops.Code(CodeNotActivated).
			Errorf("account not activated, please verify your email first")
	}

	valid, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	token, err := s.signer.Issue(account.ID, account.Username)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			Wrap(err)
	}

	s.logger.Info("login succeeded",
		"account_id", account.ID.String(),
		"username", account.Username)

	return &LoginResult{
		Token:    token,
		Username: account.Username,
		Email:    account.Email,
		Message:  "Login successful",
	}, nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).
		Errorf("invalid username/email or password")
}

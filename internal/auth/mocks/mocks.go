// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/veril/veril/internal/auth"
)

// testingT is the subset of *testing.T the mock constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository mocks auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a MockAccountRepository whose expectations
// are asserted on test cleanup.
func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if acct, ok := args.Get(0).(*auth.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	args := m.Called(ctx, username)
	if acct, ok := args.Get(0).(*auth.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if acct, ok := args.Get(0).(*auth.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Enable(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVerificationTokenRepository mocks auth.VerificationTokenRepository.
type MockVerificationTokenRepository struct {
	mock.Mock
}

// NewMockVerificationTokenRepository creates a MockVerificationTokenRepository
// whose expectations are asserted on test cleanup.
func NewMockVerificationTokenRepository(t testingT) *MockVerificationTokenRepository {
	m := &MockVerificationTokenRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockVerificationTokenRepository) Create(ctx context.Context, token *auth.VerificationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockVerificationTokenRepository) GetUnusedByTokenHash(ctx context.Context, tokenHash string) (*auth.VerificationToken, error) {
	args := m.Called(ctx, tokenHash)
	if token, ok := args.Get(0).(*auth.VerificationToken); ok {
		return token, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationTokenRepository) MarkUsed(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted on test cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockSessionSigner mocks auth.SessionSigner.
type MockSessionSigner struct {
	mock.Mock
}

// NewMockSessionSigner creates a MockSessionSigner whose expectations are
// asserted on test cleanup.
func NewMockSessionSigner(t testingT) *MockSessionSigner {
	m := &MockSessionSigner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionSigner) Issue(accountID ulid.ULID, username string) (string, error) {
	args := m.Called(accountID, username)
	return args.String(0), args.Error(1)
}

// MockNotifier mocks auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier whose expectations are asserted on
// test cleanup.
func NewMockNotifier(t testingT) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) NotifyVerification(ctx context.Context, email, username, tokenSecret string) error {
	args := m.Called(ctx, email, username, tokenSecret)
	return args.Error(0)
}

// PassthroughTransactor is an auth.Transactor that runs fn inline with the
// caller's context. Suitable for service tests where transactional boundaries
// are irrelevant.
type PassthroughTransactor struct{}

// InTx runs fn with the given context.
func (PassthroughTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

// Package auth implements the account-authentication core for Veril.
//
// # Domain Types
//
// Domain types (Account, VerificationToken) should be created using their
// respective constructors:
//   - NewAccount - creates an Account with normalized email and validated fields
//   - NewVerificationToken - creates a VerificationToken bound to an account
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service orchestrates the three core operations:
//   - Signup - register a disabled account and issue a verification token
//   - VerifyEmail - consume a verification token and activate the account
//   - Login - verify credentials and issue a signed session token
//
// Business failures carry one of the closed set of error codes declared in
// errors.go; callers dispatch on the code, not on error types.
package auth

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package auth

import "context"

// Notifier delivers the verification link for a fresh signup. Delivery is
// best-effort: the Service logs and swallows any returned error, so an
// implementation's failure can never affect the signup outcome.
type Notifier interface {
	// NotifyVerification sends the verification secret to the given address.
	NotifyVerification(ctx context.Context, email, username, tokenSecret string) error
}

// Transactor runs a function inside a single storage transaction. Repository
// calls made with the context passed to fn participate in that transaction;
// fn returning non-nil rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

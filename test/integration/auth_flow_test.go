// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

//go:build integration

package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/veril/veril/internal/auth"
)

// expectCode asserts that err carries the given error code.
func expectCode(err error, code string) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	oopsErr, ok := oops.AsOops(err)
	Expect(ok).To(BeTrue(), "expected oops error, got %T", err)
	Expect(oopsErr.Code()).To(Equal(code))
}

func signupParams(username, email string) auth.SignupParams {
	return auth.SignupParams{
		Username:    username,
		DisplayName: "Integration User",
		Email:       email,
		Phone:       "+15550100",
		Password:    "integration-pass-1",
	}
}

var _ = Describe("Account lifecycle", func() {
	It("registers, verifies, and logs in", func() {
		By("signing up a new account")
		result, err := env.Service.Signup(env.ctx, signupParams("lifecycle", "Lifecycle@Example.com"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Username).To(Equal("lifecycle"))
		Expect(result.Email).To(Equal("lifecycle@example.com"))

		By("checking the stored account is disabled")
		account, err := env.Accounts.GetByUsername(env.ctx, "lifecycle")
		Expect(err).NotTo(HaveOccurred())
		Expect(account.Enabled).To(BeFalse())
		Expect(account.Email).To(Equal("lifecycle@example.com"))

		By("refusing login before verification")
		_, err = env.Service.Login(env.ctx, "lifecycle", "integration-pass-1")
		expectCode(err, auth.CodeNotActivated)

		By("verifying with the emailed secret")
		secret := env.Notifier.secrets["lifecycle@example.com"]
		Expect(secret).NotTo(BeEmpty())

		verifyResult, err := env.Service.VerifyEmail(env.ctx, secret)
		Expect(err).NotTo(HaveOccurred())
		Expect(verifyResult.Activated).To(BeTrue())

		By("rejecting the consumed token on reuse")
		_, err = env.Service.VerifyEmail(env.ctx, secret)
		expectCode(err, auth.CodeTokenInvalid)

		By("logging in by username")
		loginResult, err := env.Service.Login(env.ctx, "lifecycle", "integration-pass-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loginResult.Token).NotTo(BeEmpty())

		By("logging in by uppercase email")
		loginResult, err = env.Service.Login(env.ctx, "LIFECYCLE@EXAMPLE.COM", "integration-pass-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loginResult.Username).To(Equal("lifecycle"))

		By("rejecting a wrong password")
		_, err = env.Service.Login(env.ctx, "lifecycle", "wrong-password")
		expectCode(err, auth.CodeInvalidCredentials)
	})
})

var _ = Describe("Signup conflicts", func() {
	It("rejects duplicate usernames case-insensitively", func() {
		_, err := env.Service.Signup(env.ctx, signupParams("dupuser", "dupuser-a@example.com"))
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Signup(env.ctx, signupParams("DupUser", "dupuser-b@example.com"))
		expectCode(err, auth.CodeConflict)
	})

	It("rejects duplicate emails case-insensitively", func() {
		_, err := env.Service.Signup(env.ctx, signupParams("dupmail-a", "dupmail@example.com"))
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Signup(env.ctx, signupParams("dupmail-b", "DupMail@Example.COM"))
		expectCode(err, auth.CodeConflict)
	})
})

var _ = Describe("Verification tokens", func() {
	It("rejects an expired token and leaves it unused", func() {
		_, err := env.Service.Signup(env.ctx, signupParams("expired", "expired@example.com"))
		Expect(err).NotTo(HaveOccurred())

		account, err := env.Accounts.GetByUsername(env.ctx, "expired")
		Expect(err).NotTo(HaveOccurred())

		secret, hash, err := auth.GenerateVerificationToken()
		Expect(err).NotTo(HaveOccurred())
		token, err := auth.NewVerificationToken(account.ID, hash, time.Now().Add(-time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Tokens.Create(env.ctx, token)).To(Succeed())

		_, err = env.Service.VerifyEmail(env.ctx, secret)
		expectCode(err, auth.CodeTokenExpired)

		stored, err := env.Tokens.GetUnusedByTokenHash(env.ctx, hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Used).To(BeFalse())
	})

	It("rejects an unknown token", func() {
		_, err := env.Service.VerifyEmail(env.ctx, "never-issued")
		expectCode(err, auth.CodeTokenInvalid)
	})
})

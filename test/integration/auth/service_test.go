// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package auth_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

func expectCode(err error, code string) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	oopsErr, ok := oops.AsOops(err)
	Expect(ok).To(BeTrue(), "expected an oops error, got %v", err)
	Expect(oopsErr.Code()).To(Equal(code))
}

var _ = Describe("Service lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetData(ctx, env.pool)
	})

	It("walks a user through register, login, refresh, and logout", func() {
		user, err := env.Service.Register(ctx, "Alice", "Alice@Example.com", "s3cret-pass", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Username).To(Equal("alice"))
		Expect(user.Email).To(Equal("alice@example.com"))

		login, err := env.Service.Login(ctx, "ALICE", "s3cret-pass")
		Expect(err).NotTo(HaveOccurred())
		Expect(login.AccessToken).NotTo(BeEmpty())
		Expect(login.RefreshToken).NotTo(BeEmpty())
		Expect(login.Roles).To(Equal([]string{"user"}))

		refreshed, err := env.Service.Refresh(ctx, login.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(refreshed.RefreshToken).NotTo(Equal(login.RefreshToken))
		Expect(refreshed.UserID).To(Equal(user.ID))

		// The rotated-out token is dead.
		_, err = env.Service.Refresh(ctx, login.RefreshToken)
		expectCode(err, auth.CodeInvalidToken)

		found, err := env.Service.Logout(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())

		// Logout revoked the surviving token too.
		_, err = env.Service.Refresh(ctx, refreshed.RefreshToken)
		expectCode(err, auth.CodeInvalidToken)
	})

	It("rejects a wrong password", func() {
		_, err := env.Service.Register(ctx, "bob", "bob@example.com", "correct-pass", nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Login(ctx, "bob", "wrong-pass")
		expectCode(err, auth.CodeInvalidCredentials)
	})

	It("rejects an unknown identifier the same way", func() {
		_, err := env.Service.Login(ctx, "ghost", "whatever")
		expectCode(err, auth.CodeInvalidCredentials)
	})

	It("rejects a second registration with the same username", func() {
		_, err := env.Service.Register(ctx, "carol", "carol@example.com", "pass-one", nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Register(ctx, "carol", "other@example.com", "pass-two", nil)
		expectCode(err, auth.CodeAlreadyExists)
	})

	It("revokes a single presented token", func() {
		_, err := env.Service.Register(ctx, "dave", "dave@example.com", "pass", nil)
		Expect(err).NotTo(HaveOccurred())
		login, err := env.Service.Login(ctx, "dave", "pass")
		Expect(err).NotTo(HaveOccurred())

		found, err := env.Service.Revoke(ctx, login.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())

		_, err = env.Service.Refresh(ctx, login.RefreshToken)
		expectCode(err, auth.CodeInvalidToken)
	})

	It("assigns an explicit role at registration", func() {
		admin, err := env.Roles.GetByName(ctx, "admin")
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Register(ctx, "erin", "erin@example.com", "pass", &admin.ID)
		Expect(err).NotTo(HaveOccurred())

		login, err := env.Service.Login(ctx, "erin", "pass")
		Expect(err).NotTo(HaveOccurred())
		Expect(login.Roles).To(Equal([]string{"admin"}))
	})
})

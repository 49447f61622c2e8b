// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/wardenauth/warden/internal/auth"
)

func createTestUser(ctx context.Context, username, email string) *auth.User {
	user, err := auth.NewUser(username, email, "stored-hash", time.Now().UTC())
	Expect(err).NotTo(HaveOccurred())
	Expect(env.Users.Create(ctx, user, auth.DefaultRoleID)).To(Succeed())
	return user
}

func createTestToken(ctx context.Context, userID int64, ttl time.Duration) *auth.RefreshToken {
	opaque, err := auth.GenerateRefreshToken()
	Expect(err).NotTo(HaveOccurred())
	rt, err := auth.NewRefreshToken(userID, opaque, time.Now().UTC(), ttl)
	Expect(err).NotTo(HaveOccurred())
	Expect(env.Tokens.Create(ctx, rt)).To(Succeed())
	return rt
}

var _ = Describe("RoleRepository", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetData(ctx, env.pool)
	})

	Describe("Create", func() {
		It("assigns an id", func() {
			role := &auth.Role{Name: "moderator"}
			Expect(env.Roles.Create(ctx, role)).To(Succeed())
			Expect(role.ID).To(BeNumerically(">", 0))
		})

		It("rejects a duplicate name", func() {
			err := env.Roles.Create(ctx, &auth.Role{Name: "user"})
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})
	})

	Describe("GetByName", func() {
		It("finds a seeded role", func() {
			role, err := env.Roles.GetByName(ctx, "admin")
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Name).To(Equal("admin"))
		})

		It("returns ErrNotFound for an unknown name", func() {
			_, err := env.Roles.GetByName(ctx, "nonexistent")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("returns roles ordered by id", func() {
			roles, err := env.Roles.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(roles)).To(BeNumerically(">=", 2))
			Expect(roles[0].Name).To(Equal("user"))
			Expect(roles[1].Name).To(Equal("admin"))
		})
	})
})

var _ = Describe("UserRepository", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetData(ctx, env.pool)
	})

	Describe("Create", func() {
		It("persists the user and its role membership", func() {
			user := createTestUser(ctx, "alice", "alice@example.com")
			Expect(user.ID).To(BeNumerically(">", 0))

			names, err := env.Users.RoleNames(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"user"}))
		})

		It("rejects a duplicate username regardless of case", func() {
			createTestUser(ctx, "alice", "alice@example.com")

			dup, err := auth.NewUser("ALICE", "other@example.com", "h", time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			err = env.Users.Create(ctx, dup, auth.DefaultRoleID)
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})

		It("rejects a duplicate email", func() {
			createTestUser(ctx, "alice", "alice@example.com")

			dup, err := auth.NewUser("bob", "alice@example.com", "h", time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			err = env.Users.Create(ctx, dup, auth.DefaultRoleID)
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})
	})

	Describe("GetByIdentifier", func() {
		It("matches username and email case-insensitively", func() {
			created := createTestUser(ctx, "Alice", "Alice@Example.com")

			byName, err := env.Users.GetByIdentifier(ctx, "ALICE")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(created.ID))

			byEmail, err := env.Users.GetByIdentifier(ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(created.ID))
		})

		It("returns ErrNotFound for an unknown identifier", func() {
			_, err := env.Users.GetByIdentifier(ctx, "ghost")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})
})

var _ = Describe("RefreshTokenRepository", func() {
	var ctx context.Context
	var user *auth.User

	BeforeEach(func() {
		ctx = context.Background()
		resetData(ctx, env.pool)
		user = createTestUser(ctx, "alice", "alice@example.com")
	})

	Describe("Rotate", func() {
		It("revokes the old token and returns its replacement", func() {
			old := createTestToken(ctx, user.ID, time.Hour)

			replacement, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())

			rotated, err := env.Tokens.Rotate(ctx, old.Token, replacement, time.Now().UTC(), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated.Token).To(Equal(replacement))
			Expect(rotated.UserID).To(Equal(user.ID))

			got, err := env.Tokens.GetByToken(ctx, old.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RevokedAt).NotTo(BeNil())
		})

		It("rejects replay of an already rotated token", func() {
			old := createTestToken(ctx, user.ID, time.Hour)

			first, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Tokens.Rotate(ctx, old.Token, first, time.Now().UTC(), time.Hour)
			Expect(err).NotTo(HaveOccurred())

			second, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Tokens.Rotate(ctx, old.Token, second, time.Now().UTC(), time.Hour)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("lets exactly one of two concurrent rotations win", func() {
			old := createTestToken(ctx, user.ID, time.Hour)

			type rotation struct {
				token *auth.RefreshToken
				err   error
			}
			results := make(chan rotation, 2)
			start := make(chan struct{})

			var wg sync.WaitGroup
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()

					replacement, err := auth.GenerateRefreshToken()
					Expect(err).NotTo(HaveOccurred())

					<-start
					rotated, err := env.Tokens.Rotate(ctx, old.Token, replacement, time.Now().UTC(), time.Hour)
					results <- rotation{token: rotated, err: err}
				}()
			}
			close(start)
			wg.Wait()
			close(results)

			var wins, losses int
			for res := range results {
				if res.err == nil {
					wins++
					Expect(res.token.UserID).To(Equal(user.ID))
				} else {
					losses++
					Expect(errors.Is(res.err, auth.ErrNotFound)).To(BeTrue())
				}
			}
			Expect(wins).To(Equal(1))
			Expect(losses).To(Equal(1))

			// The loser left no replacement behind.
			count, err := env.Tokens.RevokeAllForUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("rejects an expired token", func() {
			expired := createTestToken(ctx, user.ID, time.Millisecond)
			time.Sleep(5 * time.Millisecond)

			replacement, err := auth.GenerateRefreshToken()
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Tokens.Rotate(ctx, expired.Token, replacement, time.Now().UTC(), time.Hour)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Revoke", func() {
		It("revokes an active token and reports it as found", func() {
			rt := createTestToken(ctx, user.ID, time.Hour)

			found, err := env.Tokens.Revoke(ctx, rt.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("stays found on a second revoke of the same token", func() {
			rt := createTestToken(ctx, user.ID, time.Hour)

			_, err := env.Tokens.Revoke(ctx, rt.Token)
			Expect(err).NotTo(HaveOccurred())

			found, err := env.Tokens.Revoke(ctx, rt.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("reports an unknown token as not found", func() {
			found, err := env.Tokens.Revoke(ctx, "never-issued")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	Describe("RevokeAllForUser", func() {
		It("revokes every active token and reports the count", func() {
			createTestToken(ctx, user.ID, time.Hour)
			createTestToken(ctx, user.ID, time.Hour)

			count, err := env.Tokens.RevokeAllForUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(2)))

			count, err = env.Tokens.RevokeAllForUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})

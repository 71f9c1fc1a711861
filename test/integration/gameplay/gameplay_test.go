// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

//go:build integration

package gameplay_test

import (
	"context"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gridquest/gridquest/internal/action"
)

var _ = Describe("Playing on PostgreSQL", func() {
	var ctx context.Context
	var token string

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx)
		token = signup("traveler")
	})

	Describe("a walk into town", func() {
		It("moves, enters and exits while spending AP", func() {
			out := perform(token, "MOVE", map[string]any{"direction": "north"})
			Expect(out["success"]).To(BeTrue())
			Expect(character(out)["y"]).To(BeEquivalentTo(0))
			Expect(location(out)["name"]).To(Equal("North Road"))

			out = perform(token, "ENTER_BUILDING", nil)
			Expect(out["success"]).To(BeTrue())
			Expect(out["message"]).To(Equal("Entered Roadside Inn"))
			Expect(character(out)["inside_building"]).To(BeTrue())
			Expect(location(out)["name"]).To(Equal("Roadside Inn"))

			out = perform(token, "EXIT_BUILDING", nil)
			Expect(out["success"]).To(BeTrue())
			Expect(character(out)["inside_building"]).To(BeFalse())
			Expect(character(out)["ap"]).To(BeEquivalentTo(7))

			logs, ok := out["logs"].([]any)
			Expect(ok).To(BeTrue())
			Expect(logs).To(HaveLen(4), "signup plus three actions")
			newest, ok := logs[0].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(newest["action_type"]).To(Equal("EXIT_BUILDING"))
		})

		It("does not spend AP when walking into the edge of the world", func() {
			perform(token, "MOVE", map[string]any{"direction": "west"})
			out := perform(token, "MOVE", map[string]any{"direction": "west"})
			Expect(out["success"]).To(BeTrue())
			Expect(out["message"]).To(Equal("You can't move any further in that direction."))
			Expect(character(out)["x"]).To(BeEquivalentTo(0))
			Expect(character(out)["ap"]).To(BeEquivalentTo(9))
		})
	})

	Describe("rejections", func() {
		It("reports an invalid direction without changing the character", func() {
			out := perform(token, "MOVE", map[string]any{"direction": "up"})
			Expect(out["success"]).To(BeFalse())
			Expect(out["reason"]).To(Equal(string(action.ReasonInvalidDirection)))
			Expect(character(out)["ap"]).To(BeEquivalentTo(10))
			Expect(out["logs"]).To(HaveLen(1), "only the signup entry")
		})

		It("refuses to rest without enough AP", func() {
			for range 9 {
				perform(token, "SEARCH", nil)
			}
			out := perform(token, "REST", nil)
			Expect(out["success"]).To(BeFalse())
			Expect(out["message"]).To(Equal("Not enough AP to rest (need 2 AP)"))
			Expect(character(out)["ap"]).To(BeEquivalentTo(1))
		})
	})

	Describe("concurrent actions for one account", func() {
		It("serializes them so AP is never overspent", func() {
			var wg sync.WaitGroup
			for range 15 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					perform(token, "SEARCH", nil)
				}()
			}
			wg.Wait()

			status, out := call(http.MethodGet, "/api/character", token, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(character(out)["ap"]).To(BeEquivalentTo(0))

			var count int
			Expect(env.pool.QueryRow(ctx, "SELECT count(*) FROM action_logs").Scan(&count)).To(Succeed())
			Expect(count).To(Equal(11), "signup plus ten searches")
		})
	})

	Describe("sessions", func() {
		It("rejects a token after logout", func() {
			status, _ := call(http.MethodPost, "/api/logout", token, nil)
			Expect(status).To(Equal(http.StatusOK))

			status, out := call(http.MethodGet, "/api/character", token, nil)
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(out["message"]).To(Equal("Authentication required"))
		})

		It("logs back in with the same password", func() {
			status, out := call(http.MethodPost, "/api/login", "", map[string]string{
				"username": "traveler",
				"password": "hunter22",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(out["token"]).NotTo(BeEmpty())
		})
	})
})

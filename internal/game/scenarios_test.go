// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package game_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/game"
	"github.com/gridquest/gridquest/internal/store/bolt"
	"github.com/gridquest/gridquest/internal/store/storetest"
	"github.com/gridquest/gridquest/internal/world"
)

var _ = Describe("Playing a character", func() {
	var (
		ctx     context.Context
		store   *bolt.Store
		svc     *game.Service
		account *auth.Account
		char    *world.Character
	)

	perform := func(req action.Request) *game.Result {
		GinkgoHelper()
		res, err := svc.Perform(ctx, account.ID, req)
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = bolt.Open(filepath.Join(GinkgoT().TempDir(), "game.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		Expect(store.Migrate(ctx)).To(Succeed())

		svc, err = game.NewService(store, world.DefaultDirectory())
		Expect(err).NotTo(HaveOccurred())
		account, char = storetest.Seed(GinkgoT(), store, "wanderer")
	})

	Describe("walking north into the inn and back out", func() {
		It("spends one AP per step and logs each step", func() {
			res := perform(action.Request{
				Type:   action.TypeMove,
				Params: action.Params{action.ParamDirection: action.DirectionNorth},
			})
			Expect(res.Outcome.Success).To(BeTrue())
			Expect(res.Outcome.Message).To(Equal("Moved north"))
			Expect(res.Snapshot.Character.Position()).To(Equal(world.Position{X: 1, Y: 0}))
			Expect(res.Snapshot.Character.AP).To(Equal(9))
			Expect(res.Snapshot.Location.Name).To(Equal("North Road"))

			res = perform(action.Request{Type: action.TypeEnterBuilding})
			Expect(res.Outcome.Success).To(BeTrue())
			Expect(res.Outcome.Message).To(ContainSubstring("Roadside Inn"))
			Expect(res.Snapshot.Character.InsideBuilding).To(BeTrue())
			Expect(res.Snapshot.Character.AP).To(Equal(8))

			res = perform(action.Request{Type: action.TypeExitBuilding})
			Expect(res.Outcome.Success).To(BeTrue())
			Expect(res.Snapshot.Character.InsideBuilding).To(BeFalse())
			Expect(res.Snapshot.Character.AP).To(Equal(7))

			Expect(res.Snapshot.Logs).To(HaveLen(3))
			Expect(res.Snapshot.Logs[0].ActionType).To(Equal(string(action.TypeExitBuilding)))
		})
	})

	Describe("resting when nearly healed", func() {
		BeforeEach(func() {
			health, ap := 95, 5
			Expect(store.Characters().UpdateStats(ctx, char.ID,
				world.StatsUpdate{Health: &health, AP: &ap})).To(Succeed())
		})

		It("recovers only up to the maximum", func() {
			res := perform(action.Request{Type: action.TypeRest})
			Expect(res.Outcome.Success).To(BeTrue())
			Expect(res.Snapshot.Character.Health).To(Equal(100))
			Expect(res.Snapshot.Character.AP).To(Equal(3))
			Expect(res.Snapshot.Logs).To(HaveLen(1))
			Expect(res.Snapshot.Logs[0].Message).To(Equal("Rested and recovered 5 HP and 0 MP"))
		})
	})

	Describe("running out of action points", func() {
		It("rejects further actions without changing state", func() {
			for i := 0; i < world.DefaultAP; i++ {
				Expect(perform(action.Request{Type: action.TypeSearch}).Outcome.Success).To(BeTrue())
			}

			res := perform(action.Request{Type: action.TypeSearch})
			Expect(res.Outcome.Success).To(BeFalse())
			Expect(res.Outcome.Reason).To(Equal(action.ReasonInsufficientResource))
			Expect(res.Snapshot.Character.AP).To(BeZero())

			logs, err := store.Logs().Recent(ctx, char.ID, world.MaxLogLimit)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(world.DefaultAP))
		})
	})

	Describe("the snapshot offered after an action", func() {
		It("lists only exit, rest and search while inside", func() {
			res := perform(action.Request{Type: action.TypeEnterBuilding})
			types := make([]action.Type, 0, len(res.Snapshot.Actions))
			for _, d := range res.Snapshot.Actions {
				types = append(types, d.Type)
			}
			Expect(types).To(Equal([]action.Type{
				action.TypeExitBuilding, action.TypeRest, action.TypeSearch,
			}))
			Expect(res.Snapshot.Location.Name).To(Equal("Town Hall"))
		})
	})
})

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

//go:build integration

package cli_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
	})

	It("reports pending migrations on an empty database", func() {
		output, err := gridquest(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", output)
		Expect(output).To(ContainSubstring("Store: postgres"))
		Expect(output).To(ContainSubstring("Current version: 0"))
		Expect(output).To(ContainSubstring("Pending: 2"))
		Expect(output).To(ContainSubstring("000001_initial"))
	})

	It("creates the schema and is idempotent", func() {
		output, err := gridquest(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)
		Expect(output).To(ContainSubstring("Migrations completed successfully"))

		output, err = gridquest(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "second migrate failed: %s", output)

		var tables int
		err = env.pool.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables
			WHERE table_name IN ('accounts', 'characters', 'action_logs', 'sessions')`).Scan(&tables)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(Equal(4))

		output, err = gridquest(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred())
		Expect(output).To(ContainSubstring("Current version: 2"))
		Expect(output).To(ContainSubstring("Pending: 0"))
	})

	It("rolls back the most recent migration", func() {
		output, err := gridquest(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)

		output, err = gridquest(ctx, "migrate", "down")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)

		var exists bool
		err = env.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'sessions')`).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/orderwise/internal/app"
)

func newRecommendCmd(root *rootOptions) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "recommend CUSTOMER_ID",
		Short: "Print the top products for a customer",
		Long: `Builds the full runtime (profiles, artifacts and store) from the configuration
and ranks products for one customer exactly as POST /users would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			cfg.Events.Enabled = false
			cfg.Recommend.CacheEnabled = false

			rt, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.Recommender.Recommend(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of products (0 = recommend.top_k)")
	return cmd
}

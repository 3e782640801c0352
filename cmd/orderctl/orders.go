// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/orderwise/internal/models"
	"github.com/tomtom215/orderwise/internal/orders"
	"github.com/tomtom215/orderwise/internal/store"
	"github.com/tomtom215/orderwise/internal/validation"
)

func newOrdersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and modify the order store",
	}
	cmd.AddCommand(
		newOrdersAddCmd(root),
		newOrdersExistsCmd(root),
		newOrdersExportCmd(root),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, root *rootOptions, fn func(store.Store) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newOrdersAddCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE",
		Short: "Ingest one order line from a JSON file (\"-\" for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			var req models.OrderRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("malformed order: %w", err)
			}

			return withStore(cmd.Context(), root, func(s store.Store) error {
				line, err := orders.NewEngine(s).AddOrder(cmd.Context(), &req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), line)
			})
		},
	}
}

type existsFlags struct {
	OrderID   int    `json:"order-id" validate:"required"`
	ProductID string `json:"product-id" validate:"required"`
	SKUID     string `json:"sku-id" validate:"required"`
}

func newOrdersExistsCmd(root *rootOptions) *cobra.Command {
	var flags existsFlags

	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether an order line is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verr := validation.ValidateStruct(&flags); verr != nil {
				return verr
			}
			key := models.OrderKey{OrderID: flags.OrderID, ProductID: flags.ProductID, SKUID: flags.SKUID}
			return withStore(cmd.Context(), root, func(s store.Store) error {
				ok, err := s.Exists(cmd.Context(), key)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&flags.OrderID, "order-id", 0, "order id")
	cmd.Flags().StringVar(&flags.ProductID, "product-id", "", "product id, e.g. Product_12")
	cmd.Flags().StringVar(&flags.SKUID, "sku-id", "", "SKU id, e.g. SKU_120")
	return cmd
}

func newOrdersExportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export every stored order line to a .csv or .parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), root, func(s store.Store) error {
				lines, err := s.Load(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.ExportFile(cmd.Context(), lines, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d order lines to %s\n", len(lines), args[0])
				return nil
			})
		},
	}
}

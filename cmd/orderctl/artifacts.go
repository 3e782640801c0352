// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/orderwise/internal/artifacts"
)

type artifactsOptions struct {
	*rootOptions
	dir string
}

// artifactDir returns --dir, falling back to models.dir from the config.
func (o *artifactsOptions) artifactDir() (string, error) {
	if o.dir != "" {
		return o.dir, nil
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Models.Dir, nil
}

func newArtifactsCmd(root *rootOptions) *cobra.Command {
	opts := &artifactsOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage segmentation and recommendation model artifacts",
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "artifact directory (defaults to models.dir)")

	cmd.AddCommand(
		newArtifactsImportCmd(opts),
		newArtifactsListCmd(opts),
		newArtifactsPruneCmd(opts),
	)
	return cmd
}

func newArtifactsImportCmd(opts *artifactsOptions) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an exported model set (JSON) as a new artifact version",
		Long: `Reads a JSON export holding power_transformer, pca, kmeans and cf_models,
validates it, and writes one compressed artifact per model. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.artifactDir()
			if err != nil {
				return err
			}
			store, err := artifacts.Create(dir)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			if version == 0 {
				latest, _ := store.LatestVersion(artifacts.NameKMeans)
				version = latest + 1
			}
			metas, err := artifacts.Import(cmd.Context(), store, in, version)
			if err != nil {
				return fmt.Errorf("import artifacts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d artifacts as version %d into %s\n", len(metas), version, store.Dir())
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version to write (0 = one past the latest)")
	return cmd
}

func newArtifactsListCmd(opts *artifactsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the latest version of every artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := opts.artifactDir()
			if err != nil {
				return err
			}
			store, err := artifacts.Open(dir)
			if err != nil {
				return err
			}
			metas, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tKIND\tSIZE\tSAVED\tCHECKSUM")
			for _, m := range metas {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%.12s\n",
					m.Name, m.Version, m.Kind, m.SizeBytes, m.SavedAt.Format(time.RFC3339), m.Checksum)
			}
			return tw.Flush()
		},
	}
}

func newArtifactsPruneCmd(opts *artifactsOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old artifact versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := opts.artifactDir()
			if err != nil {
				return err
			}
			store, err := artifacts.Open(dir)
			if err != nil {
				return err
			}
			metas, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			total := 0
			for _, m := range metas {
				n, err := store.Prune(cmd.Context(), m.Name, keep)
				if err != nil {
					return err
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d old artifact files\n", total)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 3, "versions to keep per artifact")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/relicforge/relic-server-go/internal/config"
	"github.com/relicforge/relic-server-go/internal/logging"
	"github.com/relicforge/relic-server-go/internal/store"
	"github.com/spf13/cobra"
)

func storeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Maintain the document store",
	}
	cmd.AddCommand(storeCopyCmd(opts))
	return cmd
}

func storeCopyCmd(opts *globalOptions) *cobra.Command {
	var to config.StoreConfig
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy the saved document to another store driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			to.Driver = strings.ToLower(strings.TrimSpace(to.Driver))
			if to.Key == "" {
				to.Key = cfg.Store.Key
			}
			target := *cfg
			target.Store = to
			if err := target.Validate(); err != nil {
				return fmt.Errorf("destination: %w", err)
			}
			if !opts.verbose {
				cfg.Logging.Level = "error"
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			src, err := store.Open(ctx, cfg.Store, logger)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			defer src.Close()
			dst, err := store.Open(ctx, to, logger)
			if err != nil {
				return fmt.Errorf("destination: %w", err)
			}
			defer dst.Close()

			doc, err := store.Copy(ctx, src, dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d characters and %d effects from %s to %s\n",
				okLabel("copied"), len(doc.Characters), len(doc.Effects.Instances), cfg.Store.Driver, to.Driver)
			return nil
		},
	}
	cmd.Flags().StringVar(&to.Driver, "to-driver", "", "Destination driver (memory, file, sqlite, postgres, s3)")
	cmd.Flags().StringVar(&to.Key, "to-key", "", "Destination document key (defaults to the source key)")
	cmd.Flags().StringVar(&to.Path, "to-path", "", "Destination path for file and sqlite drivers")
	cmd.Flags().StringVar(&to.DSN, "to-dsn", "", "Destination postgres DSN")
	cmd.Flags().StringVar(&to.S3.Bucket, "to-bucket", "", "Destination S3 bucket")
	cmd.Flags().StringVar(&to.S3.Region, "to-region", "us-east-1", "Destination S3 region")
	cmd.Flags().StringVar(&to.S3.Endpoint, "to-endpoint", "", "Destination S3 endpoint")
	cmd.Flags().StringVar(&to.S3.Prefix, "to-prefix", "relic/", "Destination S3 key prefix")
	cmd.Flags().BoolVar(&to.S3.PathStyle, "to-path-style", false, "Use path-style S3 addressing")
	_ = cmd.MarkFlagRequired("to-driver")
	return cmd
}

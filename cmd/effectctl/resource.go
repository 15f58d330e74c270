package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/relicforge/relic-server-go/internal/sheet"
	"github.com/spf13/cobra"
)

func resourceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Spend, gain and refresh character resources",
	}
	cmd.AddCommand(resourceChangeCmd(opts, "spend", "Spend points from a resource"))
	cmd.AddCommand(resourceChangeCmd(opts, "gain", "Regain points on a resource"))
	cmd.AddCommand(resourceRefreshCmd(opts))
	return cmd
}

func resourceChangeCmd(opts *globalOptions, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <character-id> <resource> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				var res sheet.Resource
				if op == "spend" {
					res, err = a.session.Spend(ctx, args[0], args[1], amount)
				} else {
					res, err = a.session.Gain(ctx, args[0], args[1], amount)
				}
				if err != nil {
					return err
				}
				printResource(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func resourceRefreshCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <character-id> <cadence>",
		Short: "Reset every resource with a cadence to its max",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				refreshed, err := a.session.Refresh(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(refreshed) == 0 {
					fmt.Fprintf(out, "No %s resources on %s.\n", args[1], args[0])
					return nil
				}
				for _, res := range refreshed {
					printResource(out, res)
				}
				return nil
			})
		},
	}
}

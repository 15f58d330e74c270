package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func applyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <effect-id> <character-id>",
		Short: "Apply a catalog effect to a character",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.session.Apply(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !res.OK {
					fmt.Fprintf(out, "%s %s on %s: %s\n", errLabel("rejected"), args[0], args[1], res.Reason)
					printPatchResults(out, res.Results)
					return res.Err()
				}
				fmt.Fprintf(out, "%s %s on %s as %s (%d patches)\n",
					okLabel("applied"), args[0], args[1], idLabel(res.InstanceID), res.Applied)
				printPatchResults(out, res.Results)
				return nil
			})
		},
	}
}

func removeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <instance-id>",
		Short: "Remove an applied effect instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.session.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !res.OK {
					fmt.Fprintf(out, "%s %s: %s\n", warnLabel("not removed"), args[0], res.Reason)
					return res.Err()
				}
				fmt.Fprintf(out, "%s %s (%d patches)\n", okLabel("removed"), idLabel(args[0]), res.Removed)
				printPatchResults(out, res.Results)
				return nil
			})
		},
	}
}

func listCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [character-id]",
		Short: "List active effect instances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					printInstances(cmd.OutOrStdout(), a.session.Effects(args[0]))
					return nil
				}
				printInstances(cmd.OutOrStdout(), a.session.AllEffects())
				return nil
			})
		},
	}
}

func wipeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "wipe <character-id>",
		Short: "Remove every effect on a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.session.Wipe(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d effects from %s\n", okLabel("wiped"), n, idLabel(args[0]))
				return nil
			})
		},
	}
}

func catalogCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the effects that can be applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				for _, def := range a.session.Catalog() {
					fmt.Fprintf(out, "%-22s %s %s\n", idLabel(def.ID), def.DisplayName(), mutedLabel(def.Description))
				}
				return nil
			})
		},
	}
}

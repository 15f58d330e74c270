package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relicforge/relic-server-go/internal/sheet"
	"github.com/spf13/cobra"
)

func characterCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Create and inspect characters",
	}
	cmd.AddCommand(characterCreateCmd(opts))
	cmd.AddCommand(characterShowCmd(opts))
	cmd.AddCommand(characterImportCmd(opts))
	return cmd
}

func characterCreateCmd(opts *globalOptions) *cobra.Command {
	var name string
	var set []string
	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(set)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap, err := a.session.CreateCharacter(ctx, args[0], name, attrs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s character %s\n", okLabel("created"), idLabel(snap.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the id)")
	cmd.Flags().StringArrayVar(&set, "set", nil, "Initial attribute as name=value (repeatable)")
	return cmd
}

func characterShowCmd(opts *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a character's attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap, ok := a.session.Character(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, args[0])
				}
				printCharacter(cmd.OutOrStdout(), snap, all)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include internal attributes")
	return cmd
}

func characterImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create characters from a CSV file (id, name and attribute columns)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()
			snaps, err := sheet.ReadCSV(file)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				created, skipped, err := a.session.ImportCharacters(ctx, snaps)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, id := range skipped {
					fmt.Fprintf(out, "%s %s already exists\n", warnLabel("skipped"), id)
				}
				fmt.Fprintf(out, "%s %d of %d characters\n", okLabel("imported"), created, len(snaps))
				return nil
			})
		},
	}
}

func parseAssignments(pairs []string) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid attribute %q, want name=value", pair)
		}
		attrs[name] = value
	}
	return attrs, nil
}

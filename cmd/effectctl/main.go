package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags during build

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "effectctl",
		Short:         "Apply and remove effects on stored characters",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "path to configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of errors only")

	root.AddCommand(characterCmd(opts))
	root.AddCommand(applyCmd(opts))
	root.AddCommand(removeCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(wipeCmd(opts))
	root.AddCommand(catalogCmd(opts))
	root.AddCommand(resourceCmd(opts))
	root.AddCommand(storeCmd(opts))
	return root
}

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "universe",
		Short:        "Adaptive narrative simulation engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")

	opts := &rootOptions{configPath: &configPath}
	root.AddCommand(createCmd(opts))
	root.AddCommand(stepCmd(opts))
	root.AddCommand(showCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(deleteCmd(opts))
	root.AddCommand(historyCmd(opts))
	root.AddCommand(rollbackCmd(opts))
	root.AddCommand(eventsCmd(opts))
	root.AddCommand(interestCmd(opts))
	root.AddCommand(replayCmd())
	root.AddCommand(serveCmd(opts))
	root.AddCommand(versionCmd())
	return root
}

// rootOptions carries persistent flag values to subcommands.
type rootOptions struct {
	configPath *string
}

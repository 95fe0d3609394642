// Package cli holds the escrowgate command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"escrowgate/internal/platform/config"
)

type rootOptions struct {
	configFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "escrowgate",
		Short:         "Rate-limited passwordless sign-in gateway",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (yaml, json or toml); ESCROWGATE_* env vars override it")

	cmd.AddCommand(
		newServeCommand(opts),
		newPoliciesCommand(),
		newLinkCommand(opts),
		newSignInCommand(),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile)
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

package commands

import (
	"context"
	"fmt"

	"snap2sell/app"
	"snap2sell/config"
	"snap2sell/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runtime is the state shared by every subcommand of one invocation.
type runtime struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	log     *logrus.Logger
	cleanup func()
	app     *app.App
}

func (rt *runtime) open(ctx context.Context) error {
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	if rt.verbose {
		cfg.Logger.Level = "debug"
	}
	log, cleanup, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		cleanup()
		return fmt.Errorf("open client state: %w", err)
	}
	rt.cfg, rt.log, rt.cleanup, rt.app = cfg, log, cleanup, a
	return nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.log.WithError(err).Warn("Close storage error")
		}
	}
	if rt.cleanup != nil {
		rt.cleanup()
	}
}

// Execute runs the command line and releases the client state however it ends.
func Execute(ctx context.Context) error {
	rt := &runtime{}
	defer rt.close()
	return newRootCmd(rt).ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "snap2sell",
		Short:         "Farmer and consumer marketplace client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.open(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "config file (default ./config.yaml or ~/.snap2sell/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newLoginCommand(rt),
		newSignupCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newProfileCommand(rt),
		newProductsCommand(rt),
		newCartCommand(rt),
		newCheckoutCommand(rt),
		newOrdersCommand(rt),
		newReviewsCommand(rt),
		newAskCommand(rt),
		newSuggestionsCommand(rt),
		newMLCommand(rt),
		newAdminCommand(rt),
		newServeCommand(rt),
	)

	return rootCmd
}

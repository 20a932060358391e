// Command consultd-admin runs maintenance tasks against the database and the consultd HTTP API.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/bootstrap"
)

// adminApp carries state shared by every subcommand.
type adminApp struct {
	logger  *slog.Logger
	config  config.AppConfig
	baseURL string
	rawJSON bool
	out     io.Writer
	errOut  io.Writer

	// loadConfig is swapped in tests.
	loadConfig func() (config.AppConfig, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app := &adminApp{
		logger:     bootstrap.InitLogger(),
		out:        os.Stdout,
		errOut:     os.Stderr,
		loadConfig: bootstrap.LoadConfig,
	}
	err := newRootCmd(app).ExecuteContext(ctx)
	stop()
	if err != nil {
		app.logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "consultd-admin",
		Short:         "Administer consultd queues, schema, and seed data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			app.config = cfg
			if !cmd.Flags().Changed("base-url") {
				app.baseURL = cfg.HTTP.BaseURL
			}
			return nil
		},
	}
	root.SetOut(app.out)
	root.SetErr(app.errOut)
	root.PersistentFlags().StringVar(&app.baseURL, "base-url", "", "consultd base URL (defaults to APP_BASE_URL)")
	root.PersistentFlags().BoolVar(&app.rawJSON, "json", false, "Print raw JSON responses")

	root.AddCommand(
		newMigrateCmd(app),
		newSeedCmd(app),
		newSubmitCmd(app),
		newStartCmd(app),
		newQueueCmd(app),
		newWatchCmd(app),
	)
	return root
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timada-org/mcp-core/bootstrap"
	"github.com/timada-org/mcp-core/config"
	"github.com/timada-org/mcp-core/internal/api"
)

var (
	cfgDir   string
	logLevel string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the reference SSE server",

		Run: func(cmd *cobra.Command, args []string) {
			if err := bootstrap.InitLogging(logLevel); err != nil {
				log.Fatal().Err(err).Msg("failed to initialize logging")
			}

			if cfgDir == "" {
				cfgDir = os.Getenv("MCP_CONFIG_DIR")
			}

			cfg, err := config.LoadFrom(cfgDir)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to load configuration")
			}

			app, err := api.New(api.Options{Config: cfg, Logger: log.Logger})
			if err != nil {
				log.Fatal().Err(err).Msg("failed to construct server")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.Listen(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server exited unexpectedly")
			}
		},
	}
)

func init() {
	serveCmd.PersistentFlags().StringVarP(&cfgDir, "config", "c", "", "config directory (default is $MCP_CONFIG_DIR)")
	serveCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level")
}

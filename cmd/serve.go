package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s := server.New(server.Options{
			Users:       env.users,
			Tokens:      env.tokens,
			Gateway:     env.gateway,
			Attribution: env.attribution,
			Store:       env.store,
			Generator:   env.generator,
			Renderer:    env.renderer,
			AppConfig:   env.appConfig,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return s.Run(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the image generation HTTP server",
	RunE:  runServe,
}

func init() {
	flags := Cmd.Flags()

	flags.String("host", "0.0.0.0", "Host to run the server on")
	flags.Int("port", 5000, "Port to run the server on")
	flags.Bool("debug", false, "Run the HTTP router in debug mode")
	flags.String("base-path", "", "Magento root directory")

	config.BindFlag(flags, "host", "server.host")
	config.BindFlag(flags, "port", "server.port")
	config.BindFlag(flags, "debug", "server.debug")
	config.BindFlag(flags, "base-path", "base_path")
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := app.NewApp(config.MustGetConfig(), app.WithFileUploader())
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.APIKey(""); err != nil {
		app.Logger.Warn("no API key configured, requests must carry api_key")
	}

	srv, err := server.NewServer(app.Config(), app.Logger.Named("server"))
	if err != nil {
		return err
	}
	srv.SetupRoutes(app)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-signalc:
		app.Logger.Info("shutting down", zap.String("signal", sig.String()))
		return srv.Stop(context.Background())
	}
}

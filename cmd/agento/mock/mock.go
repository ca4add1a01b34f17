package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/mockserver"
	"github.com/genaker/agento/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Start a mock Gemini API for local testing",
	Long:  "Serves predictLongRunning submissions and operation polling with canned video and image results. Point gemini.api_base_url at it to exercise the CLIs without a real API key.",
	RunE:  runMock,
}

func init() {
	flags := Cmd.Flags()

	flags.String("host", "127.0.0.1", "Host to run the mock server on")
	flags.Int("port", 8080, "Port to run the mock server on")
	flags.Duration("complete-after", 5*time.Second, "Time before operations report done")

	config.BindFlag(flags, "host", "mock.host")
	config.BindFlag(flags, "port", "mock.port")
	config.BindFlag(flags, "complete-after", "mock.complete_after")
}

func runMock(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()
	zl, err := logger.InitLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync()

	srv := mockserver.New(
		mockserver.WithCompleteAfter(cfg.Mock.CompleteAfter),
		mockserver.WithLogger(zl.Named("mock")),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.Mock.Host, cfg.Mock.Port)
	}()

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-signalc:
		zl.Info("shutting down", zap.String("signal", sig.String()))
		return srv.Stop(context.Background())
	}
}

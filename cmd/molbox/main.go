package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ravoegtlin/molbox-tester/internal/config"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
	"github.com/ravoegtlin/molbox-tester/internal/pid"
	"github.com/ravoegtlin/molbox-tester/internal/poller"
	"github.com/ravoegtlin/molbox-tester/internal/stats"
)

var cfg *config.Config

func init() {
	logger.Init()

	var err error
	cfg, err = config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("Unable to start")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()
	logger.Debug().Msgf("PID file: %s", pid.Path())

	logger.Info().Msg("Starting molbox_tester...")
	logger.Info().Msgf("Configuration: %s", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	tracker := stats.New()
	p := poller.New(cfg, poller.Dialer(cfg), poller.NewLogSink(), tracker)
	p.Run(ctx)

	tracker.LogSummary()
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Shutting down gracefully...")
	cancel()
}

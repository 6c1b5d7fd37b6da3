package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	"fintrack/internal/remote"
	"fintrack/internal/worker"
)

func main() {
	logger := cli.Bootstrap()
	logger.Info("Starting fintrack-worker")

	cfg := cli.MustConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client := remote.NewClient(cfg.RemoteBaseURL)

	txnFeed := cli.MustFeed(logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPTxnQueue)
	defer txnFeed.Close()

	settingsFeed := cli.MustFeed(logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSettingsQueue)
	defer settingsFeed.Close()

	poller := worker.NewPoller(client, txnFeed, settingsFeed, cfg.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Polling remote store", "interval", cfg.PollInterval.String())
		return poller.Run(gctx)
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

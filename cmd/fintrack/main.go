package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/bus"
	"fintrack/internal/cli"
	"fintrack/internal/controller"
	apphttp "fintrack/internal/http"
	"fintrack/internal/rates"
	"fintrack/internal/remote"
	"fintrack/internal/source"
)

func main() {
	logger := cli.Bootstrap()
	cfg := cli.MustConfig(logger)

	store := cli.MustStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	client := remote.NewClient(cfg.RemoteBaseURL)
	ratesSvc := rates.NewService(cfg.RatesBaseURL, store)
	eventBus := bus.New()

	// Change feeds are optional; without AMQP the app still works but
	// remote edits only show up after a restart.
	var (
		txnFeed      source.ChangeFeed
		settingsFeed source.ChangeFeed
		publisher    controller.ChangePublisher
	)
	if cfg.AMQPURL != "" {
		tf := cli.MustFeed(logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPTxnQueue)
		defer tf.Close()

		sf := cli.MustFeed(logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSettingsQueue)
		defer sf.Close()

		txnFeed, settingsFeed, publisher = tf, sf, tf
	} else {
		logger.Warn("AMQP disabled, live updates unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := controller.New(store, eventBus, ratesSvc, client, txnFeed, settingsFeed, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, ctrl)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctrl.SetOnUpdate(srv.BroadcastRefresh)
	if err := ctrl.Start(ctx); err != nil {
		logger.Error("Failed to start controller", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

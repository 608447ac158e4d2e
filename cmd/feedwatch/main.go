// feedwatch runs the trade feed daemon: it connects to the event stream,
// authenticates when a wallet key is configured, subscribes to the configured
// pool and maintains the reconciled trade list, optionally archiving trades
// to PostgreSQL.
//
// Usage: go run ./cmd/feedwatch --config configs/feedwatch.local.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dexpulse/tradefeed/internal/archive"
	"github.com/dexpulse/tradefeed/internal/auth"
	"github.com/dexpulse/tradefeed/internal/client"
	"github.com/dexpulse/tradefeed/internal/config"
	"github.com/dexpulse/tradefeed/internal/database"
	"github.com/dexpulse/tradefeed/internal/feed"
	"github.com/dexpulse/tradefeed/internal/model"
	"github.com/dexpulse/tradefeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedwatch.local.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "log every feed update")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Client.WSURL,
		"pool", cfg.Feed.Pool,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional trade archiver
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"database", cfg.Archive.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archiver = archive.New(cfg.Archive, pool, logger)
		if err := archiver.Start(ctx); err != nil {
			logger.Error("failed to start archiver", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			archiver.Stop(stopCtx)
		}()
	}

	// Reconciled trade list
	pair := feed.Pair{
		Pool:            cfg.Feed.Pool,
		TokenIsToken0:   cfg.Feed.TokenIsToken0,
		TokenDecimals:   cfg.Feed.TokenDecimals,
		CounterDecimals: cfg.Feed.CounterDecimals,
	}
	trades := feed.New(feed.Config{
		MaxTrades: cfg.Feed.MaxTrades,
		Pair:      pair,
	}, logger)

	if *verbose {
		trades.OnUpdate(func(list []model.Trade) {
			if len(list) == 0 {
				return
			}
			top := list[0]
			logger.Debug("feed updated",
				"trades", len(list),
				"latest_tx", top.TxHash,
				"side", top.Side,
				"price", top.Price,
			)
		})
	}

	// Stream client
	cl := client.New(client.Config{
		URL:                  cfg.Client.WSURL,
		ReconnectBaseDelay:   cfg.Client.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Client.MaxReconnectAttempts,
		PingInterval:         cfg.Client.PingInterval,
		PongTimeout:          cfg.Client.PongTimeout,
		AuthProbeInterval:    cfg.Client.AuthProbeInterval,
		AuthTimeout:          cfg.Client.AuthTimeout,
		CallTimeout:          cfg.Client.CallTimeout,
		WriteTimeout:         cfg.Client.WriteTimeout,
		BufferSize:           cfg.Client.BufferSize,
	}, logger)
	defer cl.Close()

	cl.OnEvent(func(ev model.BlockchainEvent) {
		trades.ApplyEvent(ev)
		if archiver != nil {
			if trade, ok := feed.MapEvent(pair, ev, time.Now()); ok && trade.Pool == pair.Pool {
				archiver.Enqueue(trade)
			}
		}
	})
	cl.OnError(func(err error) {
		logger.Warn("stream error", "error", err)
	})
	cl.OnConnectionChange(func(up bool) {
		logger.Info("connection state changed", "connected", up)
	})

	// Subscription intent is recorded up front and flushed after auth.
	if err := cl.Subscribe(cfg.Feed.Pool); err != nil {
		logger.Warn("subscribe failed", "error", err)
	}

	if err := cl.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	// Authenticate when a wallet key is configured; the client remembers the
	// credentials and re-authenticates silently across reconnects.
	if cfg.Auth.Address != "" {
		signer, err := auth.LoadLocalSigner(cfg.Auth.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load signing key", "error", err)
			os.Exit(1)
		}
		if err := cl.Authenticate(ctx, cfg.Auth.Address, signer); err != nil {
			logger.Error("authentication failed", "error", err)
			os.Exit(1)
		}

		// Backfill from history now that the session is authenticated.
		history, err := cl.GetHistory(ctx, []string{cfg.Feed.Pool}, time.Time{}, time.Time{}, cfg.Feed.MaxTrades)
		if err != nil {
			logger.Warn("history backfill failed", "error", err)
		} else {
			trades.MergeHistory(history)
			logger.Info("history merged", "events", len(history))
		}
	} else {
		// Unauthenticated sessions can still backfill from the latest events.
		latest, err := cl.GetLatestEvents(ctx, cfg.Feed.MaxTrades)
		if err != nil {
			logger.Warn("latest backfill failed", "error", err)
		} else {
			trades.MergeHistory(latest)
			logger.Info("latest events merged", "events", len(latest))
		}
	}

	logger.Info("feedwatch running", "instance_id", cfg.Instance.ID)

	g, gctx := errgroup.WithContext(ctx)

	// Periodic stats report
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				cs := cl.Stats()
				fs := trades.Stats()
				logger.Info("stats",
					"state", cs.State,
					"authenticated", cs.Authenticated,
					"pending_calls", cs.PendingCalls,
					"trades", fs.Length,
					"applied", fs.Applied,
					"discarded", fs.Discarded,
					"duplicates", fs.Duplicates,
				)
				if archiver != nil {
					as := archiver.Stats()
					logger.Info("archive stats",
						"inserts", as.Inserts,
						"conflicts", as.Conflicts,
						"dropped", as.Dropped,
						"errors", as.Errors,
					)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("feedwatch stopped")
}

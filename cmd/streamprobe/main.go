// streamprobe connects to the event stream and prints raw activity to the
// console. Useful for checking backend connectivity, authentication and pool
// subscriptions without running the full daemon.
//
// Usage: go run ./cmd/streamprobe --url wss://stream.dexpulse.io/ws --pool 0xabc
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dexpulse/tradefeed/internal/auth"
	"github.com/dexpulse/tradefeed/internal/client"
	"github.com/dexpulse/tradefeed/internal/model"
)

func main() {
	url := flag.String("url", "wss://stream.dexpulse.io/ws", "stream endpoint")
	pool := flag.String("pool", "", "pool address to subscribe to")
	address := flag.String("address", "", "wallet address for authentication")
	keyPath := flag.String("key", "", "path to PKCS#8 PEM signing key")
	global := flag.Bool("global", false, "fetch recent global trades on startup")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := client.DefaultConfig()
	cfg.URL = *url
	cl := client.New(cfg, logger)
	defer cl.Close()

	cl.OnEvent(func(ev model.BlockchainEvent) {
		data, _ := json.Marshal(ev)
		fmt.Println(string(data))
	})
	cl.OnError(func(err error) {
		logger.Warn("stream error", "error", err)
	})
	cl.OnConnectionChange(func(up bool) {
		logger.Info("connection state changed", "connected", up)
	})

	if err := cl.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	if *address != "" {
		signer, err := auth.LoadLocalSigner(*keyPath)
		if err != nil {
			logger.Error("failed to load signing key", "error", err)
			os.Exit(1)
		}
		if err := cl.Authenticate(ctx, *address, signer); err != nil {
			logger.Error("authentication failed", "error", err)
			os.Exit(1)
		}
		logger.Info("authenticated", "address", *address)
	}

	if *pool != "" {
		if err := cl.Subscribe(*pool); err != nil {
			logger.Warn("subscribe failed", "error", err)
		}
		logger.Info("subscribed", "pool", *pool)
	}

	if *global {
		callCtx, callCancel := context.WithTimeout(ctx, 30*time.Second)
		trades, err := cl.GetGlobalTrades(callCtx, 20)
		callCancel()
		if err != nil {
			logger.Warn("global trades query failed", "error", err)
		}
		for _, t := range trades {
			data, _ := json.Marshal(t)
			fmt.Println(string(data))
		}
	}

	<-ctx.Done()
	logger.Info("streamprobe stopped")
}

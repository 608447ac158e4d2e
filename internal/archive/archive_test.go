package archive

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dexpulse/tradefeed/internal/config"
	"github.com/dexpulse/tradefeed/internal/model"
)

func testArchiveConfig() config.ArchiveConfig {
	return config.ArchiveConfig{
		Enabled:       true,
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
		BufferSize:    4,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiverTransform(t *testing.T) {
	a := New(testArchiveConfig(), nil, testLogger())

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trade := model.Trade{
		TxHash:      "0xdead",
		BlockNumber: 123456,
		Pool:        "0xpool",
		Side:        model.SideBuy,
		TokenAmount: 1.5,
		CounterAmt:  0.075,
		Price:       0.05,
		Time:        at,
		Sender:      "0xsender",
		Recipient:   "0xrecipient",
	}

	row := a.transform(trade)

	if row.TxHash != "0xdead" {
		t.Errorf("TxHash = %s, want 0xdead", row.TxHash)
	}
	if row.BlockNumber != 123456 {
		t.Errorf("BlockNumber = %d, want 123456", row.BlockNumber)
	}
	if row.Side != "buy" {
		t.Errorf("Side = %s, want buy", row.Side)
	}
	if row.TokenAmount != 1.5 {
		t.Errorf("TokenAmount = %v, want 1.5", row.TokenAmount)
	}
	if row.CounterAmount != 0.075 {
		t.Errorf("CounterAmount = %v, want 0.075", row.CounterAmount)
	}
	if row.Price != 0.05 {
		t.Errorf("Price = %v, want 0.05", row.Price)
	}
	if row.TradeTime != at.UnixMicro() {
		t.Errorf("TradeTime = %d, want %d", row.TradeTime, at.UnixMicro())
	}
}

func TestArchiverLifecycle(t *testing.T) {
	a := New(testArchiveConfig(), nil, testLogger())

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestArchiverEnqueueDropsWhenFull(t *testing.T) {
	// Not started: nothing drains the buffer, so overflow must drop.
	a := New(testArchiveConfig(), nil, testLogger())

	for i := 0; i < 6; i++ {
		a.Enqueue(model.Trade{TxHash: "0x1"})
	}

	if got := a.Stats().Dropped; got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
}

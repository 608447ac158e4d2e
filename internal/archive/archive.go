package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexpulse/tradefeed/internal/config"
	"github.com/dexpulse/tradefeed/internal/model"
)

// Archiver consumes reconciled trades and writes them to the trades table in
// batches. Inserts are append-only; replayed trades dedupe on tx_hash.
type Archiver struct {
	cfg    config.ArchiveConfig
	logger *slog.Logger

	input chan model.Trade
	db    *pgxpool.Pool

	// Batching
	batch       []tradeRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// Metrics counts archiver activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

type tradeRow struct {
	TxHash        string
	BlockNumber   uint64
	Pool          string
	Side          string
	TokenAmount   float64
	CounterAmount float64
	Price         float64
	TradeTime     int64 // microseconds
	Sender        string
	Recipient     string
}

// New creates an Archiver writing to db.
func New(cfg config.ArchiveConfig, db *pgxpool.Pool, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		cfg:    cfg,
		logger: logger,
		input:  make(chan model.Trade, cfg.BufferSize),
		db:     db,
		batch:  make([]tradeRow, 0, cfg.BatchSize),
	}
}

// Enqueue hands a trade to the archiver. Never blocks; drops when the buffer
// is full so the feed path cannot stall on a slow database.
func (a *Archiver) Enqueue(trade model.Trade) {
	select {
	case a.input <- trade:
	default:
		a.batchMu.Lock()
		a.metrics.Dropped++
		a.batchMu.Unlock()
		a.logger.Warn("archive buffer full, dropping trade", "tx_hash", trade.TxHash)
	}
}

// Start begins consuming trades and writing to the database.
func (a *Archiver) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.flushTicker = time.NewTicker(a.cfg.FlushInterval)

	a.wg.Add(1)
	go a.consumeLoop()

	a.wg.Add(1)
	go a.flushLoop()

	a.logger.Info("trade archiver started",
		"batch_size", a.cfg.BatchSize,
		"flush_interval", a.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the archiver.
func (a *Archiver) Stop(ctx context.Context) error {
	a.logger.Info("stopping trade archiver")

	if a.cancel != nil {
		a.cancel()
	}
	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("trade archiver stopped")
	case <-ctx.Done():
		a.logger.Warn("trade archiver stop timed out")
	}

	// Final flush
	a.flush()

	return nil
}

// Stats returns current metrics.
func (a *Archiver) Stats() Metrics {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.metrics
}

func (a *Archiver) consumeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case trade := <-a.input:
			a.handleTrade(trade)
		}
	}
}

func (a *Archiver) flushLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flush()
		}
	}
}

func (a *Archiver) handleTrade(trade model.Trade) {
	row := a.transform(trade)

	a.batchMu.Lock()
	a.batch = append(a.batch, row)
	shouldFlush := len(a.batch) >= a.cfg.BatchSize
	a.batchMu.Unlock()

	if shouldFlush {
		a.flush()
	}
}

func (a *Archiver) transform(trade model.Trade) tradeRow {
	return tradeRow{
		TxHash:        trade.TxHash,
		BlockNumber:   trade.BlockNumber,
		Pool:          trade.Pool,
		Side:          string(trade.Side),
		TokenAmount:   trade.TokenAmount,
		CounterAmount: trade.CounterAmt,
		Price:         trade.Price,
		TradeTime:     trade.Time.UnixMicro(),
		Sender:        trade.Sender,
		Recipient:     trade.Recipient,
	}
}

// flush writes the current batch to the database.
func (a *Archiver) flush() {
	a.batchMu.Lock()
	if len(a.batch) == 0 {
		a.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := a.batch
	a.batch = make([]tradeRow, 0, a.cfg.BatchSize)
	a.batchMu.Unlock()

	start := time.Now()

	conflicts, err := a.batchInsert(batch)
	if err != nil {
		a.logger.Error("batch insert failed", "error", err, "count", len(batch))
		a.batchMu.Lock()
		a.metrics.Errors++
		a.batchMu.Unlock()
		return
	}

	a.batchMu.Lock()
	a.metrics.Inserts += int64(len(batch) - conflicts)
	a.metrics.Conflicts += int64(conflicts)
	a.metrics.Flushes++
	a.batchMu.Unlock()

	a.logger.Debug("flushed trades",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (a *Archiver) batchInsert(rows []tradeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO trades (tx_hash, block_number, pool, side, token_amount, counter_amount, price, trade_time, sender, recipient)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (tx_hash) DO NOTHING
		`, r.TxHash, r.BlockNumber, r.Pool, r.Side, r.TokenAmount, r.CounterAmount, r.Price, r.TradeTime, r.Sender, r.Recipient)
	}

	results := a.db.SendBatch(a.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

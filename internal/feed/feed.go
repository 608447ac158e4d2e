package feed

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dexpulse/tradefeed/internal/model"
)

// Config configures a Feed.
type Config struct {
	MaxTrades int // cap on the reconciled list; oldest dropped first
	Pair      Pair
}

// DefaultMaxTrades bounds the reconciled list when no cap is configured.
const DefaultMaxTrades = 100

// Stats contains feed counters.
type Stats struct {
	Applied    int64 // push events accepted into the feed
	Discarded  int64 // events that mapped to no trade or the wrong pair
	Duplicates int64 // events whose transaction hash was already present
	Merges     int64 // historical merges performed
	Length     int   // current list length
}

// Feed is the reconciled trade list.
type Feed struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	cfg      Config
	byHash   map[string]model.Trade
	trades   []model.Trade // descending time order
	onUpdate func([]model.Trade)
	stats    Stats
}

// New creates a Feed scoped to cfg.Pair.
func New(cfg Config, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTrades <= 0 {
		cfg.MaxTrades = DefaultMaxTrades
	}
	return &Feed{
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
		byHash: make(map[string]model.Trade),
	}
}

// OnUpdate registers a callback invoked with a snapshot after every change.
func (f *Feed) OnUpdate(fn func([]model.Trade)) {
	f.mu.Lock()
	f.onUpdate = fn
	f.mu.Unlock()
}

// SetPair switches the feed to a new trading pair. The buffer's cross-pair
// carryover is invalidated before any new data is requested.
func (f *Feed) SetPair(pair Pair) {
	f.mu.Lock()
	f.cfg.Pair = pair
	f.byHash = make(map[string]model.Trade)
	f.trades = nil
	f.mu.Unlock()
	f.logger.Debug("feed pair switched", "pool", pair.Pool)
}

// Pair returns the currently selected trading pair.
func (f *Feed) Pair() Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Pair
}

// ApplyEvent incrementally reconciles one push-delivered event. Safe to call
// on every push without reprocessing history.
func (f *Feed) ApplyEvent(ev model.BlockchainEvent) {
	f.mu.Lock()

	if ev.Pool != f.cfg.Pair.Pool {
		f.stats.Discarded++
		f.mu.Unlock()
		return
	}

	trade, ok := MapEvent(f.cfg.Pair, ev, f.now())
	if !ok {
		f.stats.Discarded++
		f.mu.Unlock()
		return
	}

	changed := f.upsert(trade)
	if changed {
		f.stats.Applied++
		f.truncate()
	} else {
		f.stats.Duplicates++
	}
	f.stats.Length = len(f.trades)

	fn, snapshot := f.onUpdate, f.snapshot()
	f.mu.Unlock()

	if changed && fn != nil {
		fn(snapshot)
	}
}

// MergeHistory reconciles a batch of historical records with the live buffer.
func (f *Feed) MergeHistory(events []model.BlockchainEvent) {
	f.mu.Lock()

	for _, ev := range events {
		if ev.Pool != f.cfg.Pair.Pool {
			f.stats.Discarded++
			continue
		}
		trade, ok := MapEvent(f.cfg.Pair, ev, f.now())
		if !ok {
			f.stats.Discarded++
			continue
		}
		if existing, dup := f.byHash[trade.Key()]; dup {
			f.stats.Duplicates++
			if trade.Completeness() <= existing.Completeness() {
				continue
			}
		}
		f.byHash[trade.Key()] = trade
	}

	f.rebuild()
	f.stats.Merges++
	f.stats.Length = len(f.trades)

	fn, snapshot := f.onUpdate, f.snapshot()
	f.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Trades returns a snapshot of the reconciled list, newest first.
func (f *Feed) Trades() []model.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Len returns the current list length.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trades)
}

// Stats returns current counters.
func (f *Feed) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// upsert inserts a trade at its sorted position, or replaces a duplicate when
// the new record is more complete. Returns true if the list changed.
// Must be called with the lock held.
func (f *Feed) upsert(trade model.Trade) bool {
	existing, dup := f.byHash[trade.Key()]
	if dup {
		if trade.Completeness() <= existing.Completeness() {
			return false
		}
		f.byHash[trade.Key()] = trade
		for i := range f.trades {
			if f.trades[i].Key() == trade.Key() {
				f.trades[i] = trade
				break
			}
		}
		return true
	}

	f.byHash[trade.Key()] = trade
	i := sort.Search(len(f.trades), func(i int) bool {
		return less(f.trades[i], trade)
	})
	f.trades = append(f.trades, model.Trade{})
	copy(f.trades[i+1:], f.trades[i:])
	f.trades[i] = trade
	return true
}

// rebuild regenerates the ordered list from the dedup map.
// Must be called with the lock held.
func (f *Feed) rebuild() {
	f.trades = f.trades[:0]
	for _, t := range f.byHash {
		f.trades = append(f.trades, t)
	}
	sort.SliceStable(f.trades, func(i, j int) bool {
		return less(f.trades[j], f.trades[i])
	})
	f.truncate()
}

// truncate enforces the size cap, dropping the oldest trades.
// Must be called with the lock held.
func (f *Feed) truncate() {
	for len(f.trades) > f.cfg.MaxTrades {
		last := f.trades[len(f.trades)-1]
		delete(f.byHash, last.Key())
		f.trades = f.trades[:len(f.trades)-1]
	}
}

func (f *Feed) snapshot() []model.Trade {
	out := make([]model.Trade, len(f.trades))
	copy(out, f.trades)
	return out
}

// less orders a before b in ascending time, with block number and hash as
// deterministic tie-breakers.
func less(a, b model.Trade) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.TxHash < b.TxHash
}

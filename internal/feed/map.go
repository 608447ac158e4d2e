package feed

import (
	"math"
	"math/big"
	"time"

	"github.com/dexpulse/tradefeed/internal/model"
)

// Pair identifies the trading pair the feed is scoped to.
type Pair struct {
	Pool            string // pool address
	TokenIsToken0   bool   // which side of the pool the tracked token occupies
	TokenDecimals   int
	CounterDecimals int
}

// MapEvent transforms a raw event into a trade. Pure: no side effects, the
// caller supplies the clock. Returns false for events that carry no trade
// information (non-swaps, unparseable or zero-amount swaps).
func MapEvent(pair Pair, ev model.BlockchainEvent, now time.Time) (model.Trade, bool) {
	if ev.Kind != model.KindSwap {
		return model.Trade{}, false
	}

	args, err := ev.SwapArgs()
	if err != nil {
		return model.Trade{}, false
	}

	amount0, ok0 := scaleAmount(args.Amount0, decimals0(pair))
	amount1, ok1 := scaleAmount(args.Amount1, decimals1(pair))
	if !ok0 || !ok1 {
		return model.Trade{}, false
	}
	if amount0 == 0 && amount1 == 0 {
		return model.Trade{}, false
	}

	tokenAmt, counterAmt := amount0, amount1
	if !pair.TokenIsToken0 {
		tokenAmt, counterAmt = amount1, amount0
	}

	// Signs are pool-relative: a negative tracked-token amount means tokens
	// left the pool toward the trader, i.e. a buy.
	side := model.SideSell
	if tokenAmt < 0 {
		side = model.SideBuy
	}

	tokenAmt = math.Abs(tokenAmt)
	counterAmt = math.Abs(counterAmt)

	price := 0.0
	if tokenAmt != 0 {
		price = counterAmt / tokenAmt
	}

	return model.Trade{
		TxHash:      ev.TxHash,
		BlockNumber: ev.BlockNumber,
		Pool:        ev.Pool,
		Side:        side,
		TokenAmount: tokenAmt,
		CounterAmt:  counterAmt,
		Price:       price,
		Time:        NormalizeTimestamp(ev.Timestamp, now),
		Sender:      args.Sender,
		Recipient:   args.Recipient,
	}, true
}

func decimals0(p Pair) int {
	if p.TokenIsToken0 {
		return p.TokenDecimals
	}
	return p.CounterDecimals
}

func decimals1(p Pair) int {
	if p.TokenIsToken0 {
		return p.CounterDecimals
	}
	return p.TokenDecimals
}

// scaleAmount parses a signed decimal string of raw token units and scales
// it down by the token's decimals.
func scaleAmount(raw string, decimals int) (float64, bool) {
	if raw == "" {
		return 0, true
	}
	f, ok := new(big.Float).SetString(raw)
	if !ok {
		return 0, false
	}
	if decimals > 0 {
		div := new(big.Float).SetInt(new(big.Int).Exp(
			big.NewInt(10), big.NewInt(int64(decimals)), nil,
		))
		f.Quo(f, div)
	}
	v, _ := f.Float64()
	return v, true
}

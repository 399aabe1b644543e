package quote

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapscope/internal/amount"
	"swapscope/internal/model"
)

// Quoter simulates a swap read-only against the router and returns the
// counter amount in base units.
type Quoter interface {
	QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, poolIndex uint64, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
	QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, poolIndex uint64, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
}

// Inputs is the full set of values a quote depends on. Refresh recomputes
// only when these change.
type Inputs struct {
	TokenIn         common.Address
	TokenOut        common.Address
	Mode            model.TradeMode
	Amount          string // human string for the driving side
	DrivingDecimals uint8
	CounterDecimals uint8
	Route           *model.RouteSelection
}

// key is a stable serialization of the input set, used both for memoization
// and for last-writer-wins identity.
func (in Inputs) key() string {
	route := "-"
	if in.Route.Routable() {
		route = fmt.Sprintf("%d:%s", in.Route.PoolIndex, in.Route.PriceLimit.String())
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%s",
		in.TokenIn.Hex(), in.TokenOut.Hex(), in.Mode, in.Amount,
		in.DrivingDecimals, in.CounterDecimals, route)
}

// Result is the derived counter-amount state. CounterAmount is empty when the
// field should be cleared; Err carries a simulation failure to surface.
type Result struct {
	CounterAmount string
	CounterRaw    *big.Int
	Err           error
}

// Synchronizer keeps the non-driving amount field consistent with the driving
// field. Superseded in-flight computations never overwrite newer state: wins
// are decided by input identity, not completion order.
type Synchronizer struct {
	quoter Quoter
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	lastKey string
	current Result
}

func NewSynchronizer(quoter Quoter, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{quoter: quoter, logger: logger}
}

// Current returns the latest committed result.
func (s *Synchronizer) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Refresh recomputes the counter amount for the given inputs. Identical
// inputs return the memoized result without touching the chain. The returned
// Result is the outcome of this computation; the synchronizer's committed
// state only advances when no newer Refresh started in the meantime.
func (s *Synchronizer) Refresh(ctx context.Context, in Inputs) Result {
	key := in.key()

	s.mu.Lock()
	if key == s.lastKey {
		cached := s.current
		s.mu.Unlock()
		return cached
	}
	s.gen++
	gen := s.gen
	s.lastKey = key
	s.mu.Unlock()

	res := s.compute(ctx, in)

	s.mu.Lock()
	if gen == s.gen {
		s.current = res
	} else {
		s.logger.Debug("stale quote discarded", zap.String("key", key))
	}
	s.mu.Unlock()

	return res
}

func (s *Synchronizer) compute(ctx context.Context, in Inputs) Result {
	// An incomplete or self-referential pair, a missing route, or a
	// non-positive driving amount are normal editing states: clear the
	// counter field, no error.
	zero := (common.Address{})
	if in.TokenIn == zero || in.TokenOut == zero || in.TokenIn == in.TokenOut {
		return Result{}
	}
	if !in.Route.Routable() {
		return Result{}
	}
	driving, err := amount.Parse(in.Amount, in.DrivingDecimals)
	if err != nil || driving.Sign() <= 0 {
		return Result{}
	}

	var counter *big.Int
	switch in.Mode {
	case model.ExactOut:
		counter, err = s.quoter.QuoteExactOutput(ctx, in.TokenIn, in.TokenOut, in.Route.PoolIndex, driving, in.Route.PriceLimit)
	default:
		counter, err = s.quoter.QuoteExactInput(ctx, in.TokenIn, in.TokenOut, in.Route.PoolIndex, driving, in.Route.PriceLimit)
	}
	if err != nil {
		s.logger.Warn("quote simulation failed",
			zap.String("token_in", in.TokenIn.Hex()),
			zap.String("token_out", in.TokenOut.Hex()),
			zap.Uint64("pool_index", in.Route.PoolIndex),
			zap.Error(err),
		)
		return Result{Err: fmt.Errorf("quote: %w", err)}
	}

	human := amount.Format(counter, in.CounterDecimals)
	// A zero or unparseable rendering is "no usable quote": clearing beats
	// displaying a misleading zero.
	if human == "0" || amount.ParseOrZero(human, in.CounterDecimals).Sign() == 0 {
		return Result{}
	}

	return Result{CounterAmount: human, CounterRaw: counter}
}

package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeMode selects which side of the trade the user fixes.
type TradeMode string

const (
	// ExactIn fixes the input amount; the output is derived by quoting.
	ExactIn TradeMode = "exact_in"
	// ExactOut fixes the output amount; the input is derived by quoting.
	ExactOut TradeMode = "exact_out"
)

// TradeIntent is the user's current trade request. Amount is the human
// decimal string for the driving side; the counter side is derived.
type TradeIntent struct {
	TokenIn  common.Address
	TokenOut common.Address
	Mode     TradeMode
	Amount   string
}

// RouteSelection is the chosen execution route for a TradeIntent: a single
// direct pool and the protective price limit for it. Recomputed whenever the
// pair or the pool set changes, never persisted.
type RouteSelection struct {
	PoolIndex  uint64
	PriceLimit *big.Int
}

// Routable reports whether the selection can actually carry a trade. A zero
// price limit is the "no limit" sentinel from the price-limit calculator.
func (r *RouteSelection) Routable() bool {
	if r == nil || r.PriceLimit == nil {
		return false
	}
	return r.PriceLimit.Sign() > 0
}

// AllowanceState is the last allowance read for (owner, spender, token).
// It is stale immediately after an approval submission and must be re-read
// before being trusted again.
type AllowanceState struct {
	Owner     common.Address
	Spender   common.Address
	Token     common.Address
	Allowance *big.Int
}

// SwapParams carries everything the router needs for exactInput/exactOutput.
// Amount is the driving amount; Bound is the slippage-protected counter bound
// (minimum output for ExactIn, maximum input for ExactOut).
type SwapParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	PoolIndex         uint64
	Recipient         common.Address
	Deadline          uint64 // unix seconds
	Mode              TradeMode
	Amount            *big.Int
	Bound             *big.Int
	SqrtPriceLimitX96 *big.Int
}

package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is the on-chain state of a single concentrated-liquidity pool as read
// from the pool manager. Token0 and Token1 are canonically ordered upstream
// (lower address first).
type Pool struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	PoolIndex    uint64
	Fee          uint32 // basis points
	TickLower    int32
	TickUpper    int32
	CurrentTick  int32
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
}

// Usable reports whether the pool is initialized and can route a trade.
// A pool with zero price or zero liquidity must be excluded from routing.
func (p Pool) Usable() bool {
	if p.SqrtPriceX96 == nil || p.Liquidity == nil {
		return false
	}
	return p.SqrtPriceX96.Sign() > 0 && p.Liquidity.Sign() > 0
}

// MatchesPair reports whether the pool trades the given pair, in either order.
func (p Pool) MatchesPair(tokenA, tokenB common.Address) bool {
	if p.Token0 == tokenA && p.Token1 == tokenB {
		return true
	}
	return p.Token0 == tokenB && p.Token1 == tokenA
}

// Pair is a tradable token pair listed by the pool manager.
type Pair struct {
	Token0 common.Address
	Token1 common.Address
}

// Position is a liquidity position listed by the position manager. The
// manager exposes all positions; filtering by owner happens client-side.
type Position struct {
	Owner     common.Address
	PoolIndex uint64
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

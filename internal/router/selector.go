package router

import (
	"github.com/ethereum/go-ethereum/common"

	"swapscope/internal/model"
)

// SelectBestPool picks the single best pool for a token pair: usable pools
// only, highest liquidity first, lower fee breaking ties. Returns nil when
// no usable pool trades the pair, which callers must treat as "routing
// unavailable" rather than a fault.
func SelectBestPool(pools []model.Pool, tokenA, tokenB common.Address) *model.Pool {
	var best *model.Pool
	for i := range pools {
		p := &pools[i]
		if !p.MatchesPair(tokenA, tokenB) {
			continue
		}
		if !p.Usable() {
			continue
		}
		if best == nil || better(p, best) {
			best = p
		}
	}
	return best
}

// better orders two usable pools for the same pair: liquidity descending,
// then fee ascending. Strict total order given distinct (liquidity, fee).
func better(a, b *model.Pool) bool {
	switch a.Liquidity.Cmp(b.Liquidity) {
	case 1:
		return true
	case -1:
		return false
	}
	return a.Fee < b.Fee
}

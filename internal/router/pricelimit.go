package router

import (
	"math/big"

	"swapscope/internal/model"
	"swapscope/internal/tickmath"
)

var (
	one        = big.NewInt(1)
	hundred    = big.NewInt(100)
	ninetyNine = big.NewInt(99)
	oneOhOne   = big.NewInt(101)
)

// PriceLimit computes the protective sqrt price limit for a trade through the
// pool. Selling token0 (zeroForOne) pushes the price down, so the limit must
// sit strictly between the curve's global floor and the current price; the
// opposite direction mirrors this against the global ceiling. The pool's own
// range bound is preferred; when the bound sits at the curve edge or outside
// the valid interval, the limit falls back to a 1% step from the current
// price, clamped strictly inside the global bounds.
//
// An unusable pool yields the zero sentinel: the trade cannot be routed and
// must not be submitted.
func PriceLimit(pool *model.Pool, zeroForOne bool) *big.Int {
	if pool == nil || !pool.Usable() {
		return new(big.Int)
	}

	current := pool.SqrtPriceX96
	if zeroForOne {
		if pool.TickLower > tickmath.MinTick {
			if bound, err := tickmath.SqrtRatioAtTick(int(pool.TickLower)); err == nil &&
				bound.Cmp(tickmath.MinSqrtRatio) > 0 && bound.Cmp(current) < 0 {
				return bound
			}
		}

		limit := new(big.Int).Mul(current, ninetyNine)
		limit.Div(limit, hundred)
		floor := new(big.Int).Add(tickmath.MinSqrtRatio, one)
		if limit.Cmp(floor) < 0 {
			limit.Set(floor)
		}
		if limit.Cmp(current) >= 0 {
			return new(big.Int)
		}
		return limit
	}

	if pool.TickUpper < tickmath.MaxTick {
		if bound, err := tickmath.SqrtRatioAtTick(int(pool.TickUpper)); err == nil &&
			bound.Cmp(tickmath.MaxSqrtRatio) < 0 && bound.Cmp(current) > 0 {
			return bound
		}
	}

	limit := new(big.Int).Mul(current, oneOhOne)
	limit.Div(limit, hundred)
	ceiling := new(big.Int).Sub(tickmath.MaxSqrtRatio, one)
	if limit.Cmp(ceiling) > 0 {
		limit.Set(ceiling)
	}
	if limit.Cmp(current) <= 0 {
		return new(big.Int)
	}
	return limit
}

// SelectRoute combines pool selection and price-limit computation into the
// route for a trade intent. Returns nil when routing is unavailable.
func SelectRoute(pools []model.Pool, intent model.TradeIntent) (*model.Pool, *model.RouteSelection) {
	pool := SelectBestPool(pools, intent.TokenIn, intent.TokenOut)
	if pool == nil {
		return nil, nil
	}

	zeroForOne := pool.Token0 == intent.TokenIn
	limit := PriceLimit(pool, zeroForOne)
	if limit.Sign() == 0 {
		return pool, nil
	}
	return pool, &model.RouteSelection{PoolIndex: pool.PoolIndex, PriceLimit: limit}
}

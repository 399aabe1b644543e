package tickmath

import (
	"errors"
	"math"
	"math/big"
)

// Tick domain of the price curve. One tick is one discrete step of the
// exponential price grid with base 1.0001.
const (
	MinTick = -887272
	MaxTick = -MinTick
)

var (
	// MinSqrtRatio is the sqrt price at MinTick, Q64.96.
	MinSqrtRatio = big.NewInt(4295128739)
	// MaxSqrtRatio is the sqrt price at MaxTick, Q64.96.
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	ErrInvalidTick      = errors.New("tick out of range")
	ErrInvalidSqrtRatio = errors.New("sqrt ratio out of range")
)

const priceBase = 1.0001

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Q128.128 multipliers for each bit of the absolute tick.
var tickFactors = func() []*big.Int {
	hexes := []string{
		"fff97272373d413259a46990580e213a",
		"fff2e50f5f656932ef12357cf3c7fdcc",
		"ffe5caca7e10e4e61c3624eaa0941cd0",
		"ffcb9843d60f6159c9db58835c926644",
		"ff973b41fa98c081472e6896dfb254c0",
		"ff2ea16466c96a3843ec78b326b52861",
		"fe5dee046a99a2a811c461f1969c3053",
		"fcbe86c7900a88aedcffc83b479aa3a4",
		"f987a7253ac413176f2b074cf7815e54",
		"f3392b0822b70005940c7a398e4b70f3",
		"e7159475a2c29b7443b29c7fa6e889d9",
		"d097f3bdfd2022b8845ad8f792aa5825",
		"a9f746462d870fdf8a65dc1f90e061e5",
		"70d869a156d2a1b890bb3df62baf32f7",
		"31be135f97d08fd981231505542fcfa6",
		"9aa508b5b7a84e1c677de54f3e99bc9",
		"5d6af8dedb81196699c329225ee604",
		"2216e584f5fa1ea926041bedfe98",
		"48a170391f7dc42444e8fa2",
	}
	factors := make([]*big.Int, len(hexes))
	for i, h := range hexes {
		factors[i], _ = new(big.Int).SetString(h, 16)
	}
	return factors
}()

var (
	firstFactorOdd, _ = new(big.Int).SetString("fffcb933bd6fad37aa2d162d1a594001", 16)
	firstFactorEven   = new(big.Int).Lsh(big.NewInt(1), 128)
)

// SqrtRatioAtTick returns the Q64.96 sqrt price for a tick. Ticks outside
// [MinTick, MaxTick] are a usage error, not something to clamp.
func SqrtRatioAtTick(tick int) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrInvalidTick
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(big.Int)
	if absTick&1 != 0 {
		ratio.Set(firstFactorOdd)
	} else {
		ratio.Set(firstFactorEven)
	}
	for i, factor := range tickFactors {
		if absTick&(1<<(uint(i)+1)) != 0 {
			ratio.Mul(ratio, factor)
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up so the result always round-trips.
	rem := new(big.Int).And(ratio, big.NewInt((1<<32)-1))
	ratio.Rsh(ratio, 32)
	if rem.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the greatest tick whose sqrt ratio is less than or
// equal to the given ratio. The inverse of SqrtRatioAtTick: feeding it the
// exact ratio of a tick returns that tick.
func TickAtSqrtRatio(sqrtRatioX96 *big.Int) (int, error) {
	if sqrtRatioX96 == nil {
		return 0, ErrInvalidSqrtRatio
	}
	if sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) > 0 {
		return 0, ErrInvalidSqrtRatio
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtRatioX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// PriceToTick maps a human token1/token0 price onto the tick grid, rounding
// down to the nearest tick.
func PriceToTick(price float64) (int, error) {
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, ErrInvalidTick
	}
	tick := int(math.Floor(math.Log(price) / math.Log(priceBase)))
	if tick < MinTick || tick > MaxTick {
		return 0, ErrInvalidTick
	}
	return tick, nil
}

// TickToPrice returns the human token1/token0 price at a tick.
func TickToPrice(tick int) (float64, error) {
	if tick < MinTick || tick > MaxTick {
		return 0, ErrInvalidTick
	}
	return math.Pow(priceBase, float64(tick)), nil
}

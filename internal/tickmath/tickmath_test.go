package tickmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqrtRatioAtTickDomain(t *testing.T) {
	_, err := SqrtRatioAtTick(MinTick - 1)
	assert.ErrorIs(t, err, ErrInvalidTick, "tick too small")

	_, err = SqrtRatioAtTick(MaxTick + 1)
	assert.ErrorIs(t, err, ErrInvalidTick, "tick too large")

	rmin, err := SqrtRatioAtTick(MinTick)
	assert.NoError(t, err)
	assert.Equal(t, 0, rmin.Cmp(MinSqrtRatio), "min tick maps to min sqrt ratio")

	r0, err := SqrtRatioAtTick(0)
	assert.NoError(t, err)
	assert.Equal(t, 0, r0.Cmp(new(big.Int).Lsh(big.NewInt(1), 96)), "tick 0 maps to 1.0 in Q64.96")

	rmax, err := SqrtRatioAtTick(MaxTick)
	assert.NoError(t, err)
	assert.Equal(t, 0, rmax.Cmp(MaxSqrtRatio), "max tick maps to max sqrt ratio")
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(MinTick)
	assert.NoError(t, err)

	for tick := MinTick + 1; tick <= MaxTick; tick += 100003 {
		ratio, err := SqrtRatioAtTick(tick)
		assert.NoError(t, err)
		assert.Equal(t, 1, ratio.Cmp(prev), "ratio must strictly grow with tick, tick=%d", tick)
		prev = ratio
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	ticks := []int{MinTick, MinTick + 1, -887271, -100000, -1000, -1, 0, 1, 1000, 100000, 887271, MaxTick}
	for tick := MinTick; tick <= MaxTick; tick += 31337 {
		ticks = append(ticks, tick)
	}

	for _, tick := range ticks {
		ratio, err := SqrtRatioAtTick(tick)
		assert.NoError(t, err)

		back, err := TickAtSqrtRatio(ratio)
		assert.NoError(t, err)
		assert.Equal(t, tick, back, "round trip for tick %d", tick)
	}
}

func TestTickAtSqrtRatioBetweenTicks(t *testing.T) {
	// A ratio strictly between tick 42 and tick 43 resolves to 42.
	r42, _ := SqrtRatioAtTick(42)
	r43, _ := SqrtRatioAtTick(43)
	mid := new(big.Int).Add(r42, r43)
	mid.Rsh(mid, 1)

	tick, err := TickAtSqrtRatio(mid)
	assert.NoError(t, err)
	assert.Equal(t, 42, tick)
}

func TestTickAtSqrtRatioDomain(t *testing.T) {
	_, err := TickAtSqrtRatio(nil)
	assert.ErrorIs(t, err, ErrInvalidSqrtRatio)

	_, err = TickAtSqrtRatio(new(big.Int).Sub(MinSqrtRatio, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrInvalidSqrtRatio)

	_, err = TickAtSqrtRatio(new(big.Int).Add(MaxSqrtRatio, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrInvalidSqrtRatio)

	tick, err := TickAtSqrtRatio(new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1)))
	assert.NoError(t, err)
	assert.Equal(t, MaxTick-1, tick, "just under the ceiling resolves to MaxTick-1")
}

func TestPriceTickConversions(t *testing.T) {
	tick, err := PriceToTick(1.0)
	assert.NoError(t, err)
	assert.Equal(t, 0, tick)

	price, err := TickToPrice(0)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, price, 1e-12)

	price, err = TickToPrice(6932)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, price, 0.001)

	// log(2)/log(1.0001) = 6931.47..., rounded down to the grid.
	tick, err = PriceToTick(2.0)
	assert.NoError(t, err)
	assert.Equal(t, 6931, tick)

	_, err = PriceToTick(0)
	assert.ErrorIs(t, err, ErrInvalidTick)
	_, err = PriceToTick(-3)
	assert.ErrorIs(t, err, ErrInvalidTick)
	_, err = TickToPrice(MaxTick + 1)
	assert.ErrorIs(t, err, ErrInvalidTick)
}

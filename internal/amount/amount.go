package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount marks user input that cannot become a base-unit amount.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a human decimal string into base units scaled by
// 10^decimals. Transaction-building call sites use Parse and must treat an
// error as fatal for the pending action. The conversion is exact: no floats,
// no rounding.
func Parse(human string, decimals uint8) (*big.Int, error) {
	human = strings.TrimSpace(human)
	if human == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, human)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseOrZero is the display-path variant of Parse. A malformed or
// momentarily empty field is a normal UI state, so it yields zero instead of
// an error.
func ParseOrZero(human string, decimals uint8) *big.Int {
	n, err := Parse(human, decimals)
	if err != nil {
		return new(big.Int)
	}
	return n
}

// Format renders a base-unit amount as a human decimal string. It never
// fails: a nil amount renders as "0".
func Format(n *big.Int, decimals uint8) string {
	if n == nil {
		return "0"
	}
	return decimal.NewFromBigInt(n, -int32(decimals)).String()
}

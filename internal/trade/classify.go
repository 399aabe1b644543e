package trade

import "strings"

// Category is the user-facing classification of a transaction failure.
type Category string

const (
	CategoryUserCancelled         Category = "user cancelled"
	CategoryInsufficientFunds     Category = "insufficient funds"
	CategoryInsufficientAllowance Category = "insufficient allowance"
	CategoryInsufficientGas       Category = "insufficient gas"
	CategoryTimeout               Category = "timeout"
	CategoryOther                 Category = "other"
)

// Classify maps known failure substrings onto categories. Unrecognized errors
// fall through to CategoryOther; their raw message still reaches the user.
func Classify(err error) Category {
	if err == nil {
		return CategoryOther
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "user denied", "user rejected", "rejected by user", "cancelled", "canceled"):
		return CategoryUserCancelled
	case containsAny(msg, "allowance", "stf"):
		return CategoryInsufficientAllowance
	case containsAny(msg, "insufficient funds", "insufficient balance", "exceeds balance"):
		return CategoryInsufficientFunds
	case containsAny(msg, "intrinsic gas too low", "out of gas", "gas required exceeds", "gas limit"):
		return CategoryInsufficientGas
	case containsAny(msg, "deadline", "timed out", "timeout", "transaction too old", "expired"):
		return CategoryTimeout
	default:
		return CategoryOther
	}
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

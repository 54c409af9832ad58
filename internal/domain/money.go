package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a native-currency value in its smallest unit (wei). Amounts are
// always non-negative integers.
type Amount = decimal.Decimal

// WeiDecimals is the number of fractional digits of one ether.
const WeiDecimals = 18

// Zero is the zero Amount.
var Zero = decimal.Zero

// Wei builds an Amount from an integer wei value.
func Wei(v int64) Amount {
	return decimal.NewFromInt(v)
}

// ParseWei parses a base-10 integer wei string. It rejects fractional and
// negative values.
func ParseWei(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("amount must be an integer number of wei: %w", err)
	}
	if !d.IsInteger() {
		return Zero, fmt.Errorf("amount must be an integer number of wei")
	}
	if d.IsNegative() {
		return Zero, fmt.Errorf("amount must be >= 0")
	}
	return d, nil
}

// EtherToWei converts an ether string such as "0.1" to wei. It validates
// that the input has at most 18 fractional digits.
func EtherToWei(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid ether amount: %w", err)
	}
	wei := d.Shift(WeiDecimals)
	if !wei.IsInteger() {
		return Zero, fmt.Errorf("ether amounts must have at most %d decimal places", WeiDecimals)
	}
	return wei, nil
}

// WeiToEther formats a wei amount as an ether string.
func WeiToEther(a Amount) string {
	return a.Shift(-WeiDecimals).String()
}

// MustEther is EtherToWei for constants; it panics on malformed input.
func MustEther(s string) Amount {
	a, err := EtherToWei(s)
	if err != nil {
		panic(err)
	}
	return a
}

package swap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	clierr "swapDesk/internal/errors"
)

// DefaultMaxSlippageBps caps slippage at 10% unless configured otherwise.
const DefaultMaxSlippageBps = 1000

// Intent is a swap request as the user entered it. Tokens are role names
// (token0, token1), addresses or symbols.
type Intent struct {
	InputToken  string `json:"input_token"`
	OutputToken string `json:"output_token"`
	AmountIn    string `json:"amount_in"`
	SlippageBps int    `json:"slippage_bps"`
}

// Validate checks the intent without touching the chain.
func (i Intent) Validate(maxSlippageBps int) error {
	if maxSlippageBps <= 0 {
		maxSlippageBps = DefaultMaxSlippageBps
	}
	in := strings.TrimSpace(i.InputToken)
	out := strings.TrimSpace(i.OutputToken)
	if in == "" || out == "" {
		return invalid("input and output token are required")
	}
	if strings.EqualFold(in, out) {
		return invalid("input and output token must differ")
	}
	if _, err := positiveAmount("amount in", i.AmountIn); err != nil {
		return err
	}
	if i.SlippageBps < 0 || i.SlippageBps > maxSlippageBps {
		return invalid(fmt.Sprintf("slippage must be between 0 and %d bps", maxSlippageBps))
	}
	return nil
}

func (i Intent) params() map[string]string {
	return map[string]string{
		"input_token":  i.InputToken,
		"output_token": i.OutputToken,
		"amount_in":    i.AmountIn,
		"slippage_bps": fmt.Sprint(i.SlippageBps),
	}
}

func invalid(msg string) error {
	return clierr.New(clierr.CodeInvalidIntent, msg)
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return decimal.Zero, invalid(field + " is required")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, invalid(fmt.Sprintf("%s %q is not a number", field, raw))
	}
	return d, nil
}

func positiveAmount(field, raw string) (decimal.Decimal, error) {
	d, err := parseAmount(field, raw)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return d, invalid(field + " must be greater than zero")
	}
	return d, nil
}

// ToBaseUnits scales a token amount by 10^decimals. Amounts finer than one
// base unit are rejected rather than rounded.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, invalid(fmt.Sprintf("amount %s has more than %d decimal places", amount, decimals))
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders base units as a token amount.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

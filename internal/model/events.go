package model

import "strings"

// Typed payloads for the pool events a front end shows. Amounts stay decimal
// strings so int256 and uint256 values survive JSON and YAML unchanged.

// SwapEventData is the decoded Swap event payload. Amounts are signed from the
// pool's side: positive means the pool received the token.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// ZeroForOne reports whether the swap sold token0 into the pool.
func (s SwapEventData) ZeroForOne() bool {
	a := strings.TrimSpace(s.Amount0)
	return a != "" && a != "0" && !strings.HasPrefix(a, "-")
}

// TickRange is the position range shared by Mint, Burn and Collect.
type TickRange struct {
	TickLower int32 `json:"tick_lower"`
	TickUpper int32 `json:"tick_upper"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender string `json:"sender"`
	Owner  string `json:"owner"`
	TickRange
	Amount  string `json:"amount"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Owner string `json:"owner"`
	TickRange
	Amount  string `json:"amount"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// CollectEventData is the decoded Collect event payload.
type CollectEventData struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	TickRange
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

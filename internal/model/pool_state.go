package model

// PoolState is a snapshot of the pool's price and active liquidity.
type PoolState struct {
	Deployment   string    `json:"deployment"`
	Pool         string    `json:"pool"`
	Token0       TokenMeta `json:"token0"`
	Token1       TokenMeta `json:"token1"`
	SqrtPriceX96 string    `json:"sqrt_price_x96"`
	Tick         int32     `json:"tick"`
	Liquidity    string    `json:"liquidity"`
	// Price is token1 per token0 adjusted for decimals.
	Price       string `json:"price"`
	BlockNumber uint64 `json:"block_number"`
}

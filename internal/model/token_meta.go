package model

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Role     string `json:"role,omitempty"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
}

// Balance is an account balance in base units and in token units.
type Balance struct {
	Asset     string `json:"asset"`
	Address   string `json:"address,omitempty"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

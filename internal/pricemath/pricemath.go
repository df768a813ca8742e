// Package pricemath converts between human prices, Q64.96 square-root prices
// and ticks, and sizes liquidity positions.
//
// Prices are quoted as y per x, where x is the token whose reserves are
// measured by the upper half of a range (ETH in a USDC/ETH pool) and y is the
// quote token.
package pricemath

import (
	"fmt"
	"math"
	"math/big"
)

// Q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

var (
	// MinSqrtRatio and MaxSqrtRatio bound sqrtPriceX96 for ticks in [-887272, 887272].
	MinSqrtRatio    = big.NewInt(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

const (
	MinTick = -887272
	MaxTick = 887272

	tickBase = 1.0001
)

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("price must be a positive finite number, got %v", price)
	}
	return nil
}

// PriceToSqrtP returns floor(sqrt(price) * 2^96).
func PriceToSqrtP(price float64) (*big.Int, error) {
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	scaled := new(big.Float).SetFloat64(math.Sqrt(price))
	scaled.SetMantExp(scaled, 96)
	out, _ := scaled.Int(nil)
	return out, nil
}

// PriceToTick returns the largest tick whose price does not exceed price.
func PriceToTick(price float64) (int32, error) {
	if err := checkPrice(price); err != nil {
		return 0, err
	}
	tick := math.Floor(math.Log(price) / math.Log(tickBase))
	if tick < MinTick || tick > MaxTick {
		return 0, fmt.Errorf("price %v is outside the tick range", price)
	}
	return int32(tick), nil
}

func TickToPrice(tick int32) float64 {
	return math.Pow(tickBase, float64(tick))
}

// TickToSqrtP approximates the sqrt price at tick using float math.
func TickToSqrtP(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("tick %d out of range", tick)
	}
	return PriceToSqrtP(TickToPrice(tick))
}

// SqrtPToPrice returns (sqrtP / 2^96)^2.
func SqrtPToPrice(sqrtP *big.Int) float64 {
	if sqrtP == nil || sqrtP.Sign() <= 0 {
		return 0
	}
	f := new(big.Float).SetPrec(256).SetInt(sqrtP)
	f.SetMantExp(f, -96)
	f.Mul(f, f)
	price, _ := f.Float64()
	return price
}

// LiquidityForAmounts returns the largest liquidity that amountX and amountY
// can fund for the range [sqrtA, sqrtB] at current price sqrtC.
func LiquidityForAmounts(amountX, amountY, sqrtA, sqrtC, sqrtB *big.Int) (*big.Int, error) {
	upper := absDiff(sqrtB, sqrtC)
	lower := absDiff(sqrtC, sqrtA)
	if upper.Sign() == 0 || lower.Sign() == 0 {
		return nil, fmt.Errorf("current price must lie strictly inside the range")
	}

	lx := new(big.Int).Mul(amountX, sqrtB)
	lx.Mul(lx, sqrtC)
	lx.Quo(lx, new(big.Int).Mul(upper, Q96))

	ly := new(big.Int).Mul(amountY, Q96)
	ly.Quo(ly, lower)

	if lx.Cmp(ly) < 0 {
		return lx, nil
	}
	return ly, nil
}

// AmountsForLiquidity returns the token amounts a position of liquidity holds
// for the range [sqrtA, sqrtB] at current price sqrtC.
func AmountsForLiquidity(liquidity, sqrtA, sqrtC, sqrtB *big.Int) (x, y *big.Int, err error) {
	if sqrtB.Sign() == 0 || sqrtC.Sign() == 0 {
		return nil, nil, fmt.Errorf("sqrt prices must be positive")
	}
	x = new(big.Int).Mul(liquidity, absDiff(sqrtB, sqrtC))
	x.Mul(x, Q96)
	x.Quo(x, new(big.Int).Mul(sqrtB, sqrtC))

	y = new(big.Int).Mul(liquidity, absDiff(sqrtC, sqrtA))
	y.Quo(y, Q96)
	return x, y, nil
}

// SqrtPriceLimit bounds a swap so the price moves at most slippageBps from
// current. zeroForOne swaps push the price down.
func SqrtPriceLimit(current *big.Int, slippageBps int, zeroForOne bool) (*big.Int, error) {
	if current == nil || current.Sign() <= 0 {
		return nil, fmt.Errorf("current sqrt price must be positive")
	}
	if slippageBps < 0 || slippageBps >= 10_000 {
		return nil, fmt.Errorf("slippage %d bps out of range", slippageBps)
	}

	// Price scales with the square of sqrtP, so the limit moves by sqrt(1 +/- s).
	factor := 1 + float64(slippageBps)/10_000
	if zeroForOne {
		factor = 1 - float64(slippageBps)/10_000
	}
	scaled := new(big.Float).SetPrec(256).SetInt(current)
	scaled.Mul(scaled, new(big.Float).SetPrec(256).SetFloat64(math.Sqrt(factor)))
	limit, _ := scaled.Int(nil)

	// The pool requires the limit strictly beyond the current price.
	if zeroForOne {
		if limit.Cmp(current) >= 0 {
			limit.Sub(current, big.NewInt(1))
		}
		floor := new(big.Int).Add(MinSqrtRatio, big.NewInt(1))
		if limit.Cmp(floor) < 0 {
			limit = floor
		}
		return limit, nil
	}
	if limit.Cmp(current) <= 0 {
		limit.Add(current, big.NewInt(1))
	}
	ceiling := new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1))
	if limit.Cmp(ceiling) > 0 {
		limit = ceiling
	}
	return limit, nil
}

func absDiff(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	return d.Abs(d)
}

package pricemath

import (
	"math"
	"math/big"
	"testing"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad int %q", s)
	}
	return v
}

func TestPriceToTick(t *testing.T) {
	cases := []struct {
		price float64
		tick  int32
	}{
		{4545, 84222},
		{5000, 85176},
		{5500, 86129},
		{1, 0},
	}
	for _, tc := range cases {
		got, err := PriceToTick(tc.price)
		if err != nil {
			t.Fatalf("tick for %v: %v", tc.price, err)
		}
		if got != tc.tick {
			t.Fatalf("tick for %v: want %d got %d", tc.price, tc.tick, got)
		}
	}
	if _, err := PriceToTick(0); err == nil {
		t.Fatalf("expected error for zero price")
	}
}

func TestPriceToSqrtP(t *testing.T) {
	got, err := PriceToSqrtP(5000)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	want := mustInt(t, "5602277097478614198912276234240")
	if got.Cmp(want) != 0 {
		t.Fatalf("want %s got %s", want, got)
	}
	if price := SqrtPToPrice(got); math.Abs(price-5000) > 1e-6 {
		t.Fatalf("round trip price %v", price)
	}
	if _, err := PriceToSqrtP(math.NaN()); err == nil {
		t.Fatalf("expected error for NaN")
	}
}

func TestLiquidityAndAmounts(t *testing.T) {
	eth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	sqrtA, _ := PriceToSqrtP(4545)
	sqrtC, _ := PriceToSqrtP(5000)
	sqrtB, _ := PriceToSqrtP(5500)

	amountY := new(big.Int).Mul(big.NewInt(5000), eth)
	liquidity, err := LiquidityForAmounts(eth, amountY, sqrtA, sqrtC, sqrtB)
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if want := mustInt(t, "1517882343751509783892"); liquidity.Cmp(want) != 0 {
		t.Fatalf("liquidity: want %s got %s", want, liquidity)
	}

	x, y, err := AmountsForLiquidity(liquidity, sqrtA, sqrtC, sqrtB)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if want := mustInt(t, "998976618347425273"); x.Cmp(want) != 0 {
		t.Fatalf("amount x: want %s got %s", want, x)
	}
	if want := mustInt(t, "4999999999999999999999"); y.Cmp(want) != 0 {
		t.Fatalf("amount y: want %s got %s", want, y)
	}

	if _, err := LiquidityForAmounts(eth, amountY, sqrtC, sqrtC, sqrtB); err == nil {
		t.Fatalf("expected error when price sits on the range edge")
	}
}

func TestSqrtPriceLimit(t *testing.T) {
	current, _ := PriceToSqrtP(5000)

	down, err := SqrtPriceLimit(current, 100, true)
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if down.Cmp(current) >= 0 {
		t.Fatalf("zeroForOne limit must be below current")
	}
	if price := SqrtPToPrice(down); math.Abs(price-4950) > 1e-3 {
		t.Fatalf("expected price near 4950, got %v", price)
	}

	up, err := SqrtPriceLimit(current, 100, false)
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if price := SqrtPToPrice(up); math.Abs(price-5050) > 1e-3 {
		t.Fatalf("expected price near 5050, got %v", price)
	}

	tight, _ := SqrtPriceLimit(current, 0, true)
	if new(big.Int).Sub(current, tight).Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("zero slippage should sit one step below current")
	}

	low, _ := SqrtPriceLimit(new(big.Int).Add(MinSqrtRatio, big.NewInt(5)), 9_000, true)
	if low.Cmp(MinSqrtRatio) <= 0 {
		t.Fatalf("limit must stay above the minimum ratio")
	}

	if _, err := SqrtPriceLimit(current, 10_000, true); err == nil {
		t.Fatalf("expected error for 100%% slippage")
	}
}

func TestTickToPrice(t *testing.T) {
	if p := TickToPrice(85176); math.Abs(p-5000)/5000 > 1e-3 {
		t.Fatalf("unexpected price %v", p)
	}
	if _, err := TickToSqrtP(MaxTick + 1); err == nil {
		t.Fatalf("expected range error")
	}
}

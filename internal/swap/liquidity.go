package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapDesk/internal/dex"
	"swapDesk/internal/journal"
	"swapDesk/internal/model"
	"swapDesk/internal/pricemath"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

// LiquidityIntent adds liquidity between two prices quoted as token1 per token0.
// Amounts are in token units; empty minimums mean zero.
type LiquidityIntent struct {
	LowerPrice string `json:"lower_price"`
	UpperPrice string `json:"upper_price"`
	Amount0    string `json:"amount0"`
	Amount1    string `json:"amount1"`
	Amount0Min string `json:"amount0_min,omitempty"`
	Amount1Min string `json:"amount1_min,omitempty"`
}

type liquidityAmounts struct {
	lower, upper decimal.Decimal
	amount0      decimal.Decimal
	amount1      decimal.Decimal
	amount0Min   decimal.Decimal
	amount1Min   decimal.Decimal
}

func (l LiquidityIntent) parse() (liquidityAmounts, error) {
	var out liquidityAmounts
	var err error
	if out.lower, err = positiveAmount("lower price", l.LowerPrice); err != nil {
		return out, err
	}
	if out.upper, err = positiveAmount("upper price", l.UpperPrice); err != nil {
		return out, err
	}
	if !out.lower.LessThan(out.upper) {
		return out, invalid("lower price must be below upper price")
	}
	if out.amount0, err = nonNegative("amount0", l.Amount0); err != nil {
		return out, err
	}
	if out.amount1, err = nonNegative("amount1", l.Amount1); err != nil {
		return out, err
	}
	if !out.amount0.IsPositive() && !out.amount1.IsPositive() {
		return out, invalid("amount0 or amount1 must be greater than zero")
	}
	if out.amount0Min, err = optionalMin("amount0 min", l.Amount0Min, out.amount0); err != nil {
		return out, err
	}
	if out.amount1Min, err = optionalMin("amount1 min", l.Amount1Min, out.amount1); err != nil {
		return out, err
	}
	return out, nil
}

// Validate checks the intent without touching the chain.
func (l LiquidityIntent) Validate() error {
	_, err := l.parse()
	return err
}

func (l LiquidityIntent) params() map[string]string {
	return map[string]string{
		"lower_price": l.LowerPrice,
		"upper_price": l.UpperPrice,
		"amount0":     l.Amount0,
		"amount1":     l.Amount1,
		"amount0_min": l.Amount0Min,
		"amount1_min": l.Amount1Min,
	}
}

func nonNegative(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := parseAmount(field, raw)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return d, invalid(field + " must not be negative")
	}
	return d, nil
}

func optionalMin(field, raw string, desired decimal.Decimal) (decimal.Decimal, error) {
	d, err := nonNegative(field, raw)
	if err != nil {
		return d, err
	}
	if d.GreaterThan(desired) {
		return d, invalid(fmt.Sprintf("%s exceeds the desired amount", field))
	}
	return d, nil
}

type mintParams struct {
	PoolAddress    common.Address
	LowerTick      *big.Int
	UpperTick      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
}

// rawPrice converts a token1-per-token0 price into base-unit terms.
func rawPrice(price decimal.Decimal, meta0, meta1 model.TokenMeta) float64 {
	scaled, _ := price.Shift(int32(meta1.Decimals) - int32(meta0.Decimals)).Float64()
	return scaled
}

// AddLiquidity approves both tokens as needed and mints a position through the manager.
func (f *Form) AddLiquidity(ctx context.Context, session *wallet.Session, intent LiquidityIntent) (Receipt, error) {
	amounts, err := intent.parse()
	if err != nil {
		return Receipt{}, err
	}
	b, err := f.bind(session, pairRoles...)
	if err != nil {
		return Receipt{}, err
	}
	meta0, err := dex.FetchTokenMeta(ctx, b.token0, f.tokens, f.logger)
	if err != nil {
		return Receipt{}, err
	}
	meta1, err := dex.FetchTokenMeta(ctx, b.token1, f.tokens, f.logger)
	if err != nil {
		return Receipt{}, err
	}

	lowerTick, err := pricemath.PriceToTick(rawPrice(amounts.lower, meta0, meta1))
	if err != nil {
		return Receipt{}, invalid(err.Error())
	}
	upperTick, err := pricemath.PriceToTick(rawPrice(amounts.upper, meta0, meta1))
	if err != nil {
		return Receipt{}, invalid(err.Error())
	}
	if lowerTick >= upperTick {
		return Receipt{}, invalid("price range is narrower than one tick")
	}

	raw := make([]*big.Int, 4)
	for i, pair := range []struct {
		amount decimal.Decimal
		meta   model.TokenMeta
	}{
		{amounts.amount0, meta0}, {amounts.amount1, meta1},
		{amounts.amount0Min, meta0}, {amounts.amount1Min, meta1},
	} {
		if raw[i], err = ToBaseUnits(pair.amount, pair.meta.Decimals); err != nil {
			return Receipt{}, err
		}
	}

	entry := journal.NewEntry("liquidity", f.dep.Name, session.ChainID().String(), session.Account().Hex(), intent.params())
	f.record(&entry)

	estimate := f.estimateLiquidity(ctx, b, lowerTick, upperTick, raw[0], raw[1])

	var approvals []string
	for _, role := range []registry.Role{registry.RoleToken0, registry.RoleToken1} {
		amount := raw[0]
		if role == registry.RoleToken1 {
			amount = raw[1]
		}
		if amount.Sign() == 0 {
			continue
		}
		hashes, err := f.ensureAllowance(ctx, b.token(role), b.manager.Address, amount, &entry)
		if err != nil {
			return Receipt{}, f.fail(&entry, err)
		}
		approvals = append(approvals, hashes...)
	}

	pending, err := b.manager.Transact(ctx, "mint", mintParams{
		PoolAddress:    b.pool.Address,
		LowerTick:      big.NewInt(int64(lowerTick)),
		UpperTick:      big.NewInt(int64(upperTick)),
		Amount0Desired: raw[0],
		Amount1Desired: raw[1],
		Amount0Min:     raw[2],
		Amount1Min:     raw[3],
	})
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}
	f.submitted(&entry, pending)

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}
	f.confirm(&entry)

	out := Receipt{
		ID:          entry.ID,
		Kind:        "liquidity",
		TxHash:      pending.Hash.Hex(),
		BlockNumber: blockOf(receipt),
		GasUsed:     receipt.GasUsed,
		Approvals:   approvals,
		Amount0:     raw[0].String(),
		Amount1:     raw[1].String(),
		LowerTick:   &lowerTick,
		UpperTick:   &upperTick,
		LowerPrice:  tickPrice(lowerTick, meta0, meta1),
		UpperPrice:  tickPrice(upperTick, meta0, meta1),
	}
	if estimate.liquidity != nil {
		out.Liquidity = estimate.liquidity.String()
		out.Expected0 = estimate.amount0.String()
		out.Expected1 = estimate.amount1.String()
	}
	f.logger.Info("liquidity added",
		zap.String("tx", out.TxHash),
		zap.Int32("lower_tick", lowerTick),
		zap.Int32("upper_tick", upperTick),
	)
	return out, nil
}

type positionEstimate struct {
	liquidity *big.Int
	amount0   *big.Int
	amount1   *big.Int
}

// estimateLiquidity sizes the position when the pool price sits inside the
// range and reports the amounts that liquidity actually consumes. The zero
// value means no estimate was possible.
func (f *Form) estimateLiquidity(ctx context.Context, b bindings, lowerTick, upperTick int32, amount0, amount1 *big.Int) positionEstimate {
	slot0, err := dex.FetchSlot0(ctx, b.pool)
	if err != nil {
		f.logger.Debug("slot0 unavailable for liquidity estimate", zap.Error(err))
		return positionEstimate{}
	}
	if slot0.Tick <= lowerTick || slot0.Tick >= upperTick {
		return positionEstimate{}
	}
	sqrtA, errA := pricemath.TickToSqrtP(lowerTick)
	sqrtB, errB := pricemath.TickToSqrtP(upperTick)
	if errA != nil || errB != nil {
		return positionEstimate{}
	}
	liquidity, err := pricemath.LiquidityForAmounts(amount0, amount1, sqrtA, slot0.SqrtPriceX96, sqrtB)
	if err != nil {
		return positionEstimate{}
	}
	used0, used1, err := pricemath.AmountsForLiquidity(liquidity, sqrtA, slot0.SqrtPriceX96, sqrtB)
	if err != nil {
		return positionEstimate{}
	}
	return positionEstimate{liquidity: liquidity, amount0: used0, amount1: used1}
}

// tickPrice is the human price (token1 per token0) at a tick boundary.
func tickPrice(tick int32, meta0, meta1 model.TokenMeta) string {
	price := decimal.NewFromFloat(pricemath.TickToPrice(tick))
	return price.Shift(int32(meta0.Decimals) - int32(meta1.Decimals)).Round(6).String()
}

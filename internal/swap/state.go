package swap

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"swapDesk/internal/contract"
	"swapDesk/internal/dex"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/model"
	"swapDesk/internal/pricemath"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

// PoolState reads the pool price, tick and active liquidity.
func (f *Form) PoolState(ctx context.Context, session *wallet.Session) (model.PoolState, error) {
	b, err := f.bind(session, registry.RoleToken0, registry.RoleToken1, registry.RolePool)
	if err != nil {
		return model.PoolState{}, err
	}
	meta0, err := dex.FetchTokenMeta(ctx, b.token0, f.tokens, f.logger)
	if err != nil {
		return model.PoolState{}, err
	}
	meta1, err := dex.FetchTokenMeta(ctx, b.token1, f.tokens, f.logger)
	if err != nil {
		return model.PoolState{}, err
	}
	slot0, err := dex.FetchSlot0(ctx, b.pool)
	if err != nil {
		return model.PoolState{}, err
	}
	liquidity, err := dex.FetchLiquidity(ctx, b.pool)
	if err != nil {
		return model.PoolState{}, err
	}
	head, err := f.adapter.Backend().BlockNumber(ctx)
	if err != nil {
		return model.PoolState{}, clierr.Wrap(clierr.CodeNetwork, "read block number", err)
	}

	return model.PoolState{
		Deployment:   f.dep.Name,
		Pool:         b.pool.Address.Hex(),
		Token0:       meta0,
		Token1:       meta1,
		SqrtPriceX96: slot0.SqrtPriceX96.String(),
		Tick:         slot0.Tick,
		Liquidity:    liquidity.String(),
		Price:        HumanPrice(slot0.SqrtPriceX96, meta0.Decimals, meta1.Decimals),
		BlockNumber:  head,
	}, nil
}

// HumanPrice renders sqrtPriceX96 as token1 per token0 in token units.
func HumanPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) string {
	raw := pricemath.SqrtPToPrice(sqrtPriceX96)
	if raw == 0 {
		return "0"
	}
	return decimal.NewFromFloat(raw).Shift(int32(decimals0) - int32(decimals1)).Round(8).String()
}

// Balances returns the native balance and both pool token balances of the session account.
func (f *Form) Balances(ctx context.Context, session *wallet.Session) ([]model.Balance, error) {
	b, err := f.bind(session, registry.RoleToken0, registry.RoleToken1)
	if err != nil {
		return nil, err
	}
	account := session.Account()

	native, err := f.adapter.Backend().BalanceAt(ctx, account)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNetwork, "read native balance", err)
	}
	out := []model.Balance{{Asset: "native", Raw: native.String(), Formatted: FormatUnits(native, 18)}}

	for _, token := range []*contract.Binding{b.token0, b.token1} {
		meta, err := dex.FetchTokenMeta(ctx, token, f.tokens, f.logger)
		if err != nil {
			return nil, err
		}
		values, err := token.Read(ctx, "balanceOf", account)
		if err != nil {
			return nil, err
		}
		raw, err := contract.AsBigInt(values[0])
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "decode balance", err)
		}
		asset := meta.Symbol
		if asset == "" {
			asset = string(token.Role)
		}
		out = append(out, model.Balance{
			Asset:     asset,
			Address:   token.Address.Hex(),
			Raw:       raw.String(),
			Formatted: FormatUnits(raw, meta.Decimals),
		})
	}
	return out, nil
}

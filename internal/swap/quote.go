package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapDesk/internal/contract"
	"swapDesk/internal/dex"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/pricemath"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

// Quote is a simulated swap result from the quoter contract.
type Quote struct {
	InputToken        string `json:"input_token"`
	OutputToken       string `json:"output_token"`
	AmountIn          string `json:"amount_in"`
	AmountOut         string `json:"amount_out"`
	AmountOutRaw      string `json:"amount_out_raw"`
	SqrtPriceX96After string `json:"sqrt_price_x96_after"`
	TickAfter         int32  `json:"tick_after"`
}

type quoteParams struct {
	Pool              common.Address
	AmountIn          *big.Int
	ZeroForOne        bool
	SqrtPriceLimitX96 *big.Int
}

// Quote simulates intent through the quoter. Deployments without a quoter
// return an unbound-role error.
func (f *Form) Quote(ctx context.Context, session *wallet.Session, intent Intent) (Quote, error) {
	if err := intent.Validate(f.cfg.MaxSlippageBps); err != nil {
		return Quote{}, err
	}
	quoter, err := f.adapter.Bind(registry.RoleQuoter, f.dep, session)
	if err != nil {
		return Quote{}, err
	}
	amount, _ := positiveAmount("amount in", intent.AmountIn)
	b, err := f.bind(session, registry.RoleToken0, registry.RoleToken1, registry.RolePool)
	if err != nil {
		return Quote{}, err
	}
	inRole, outRole, err := f.resolvePair(ctx, b, intent.InputToken, intent.OutputToken)
	if err != nil {
		return Quote{}, err
	}
	zeroForOne := inRole == registry.RoleToken0
	inMeta, err := dex.FetchTokenMeta(ctx, b.token(inRole), f.tokens, f.logger)
	if err != nil {
		return Quote{}, err
	}
	outMeta, err := dex.FetchTokenMeta(ctx, b.token(outRole), f.tokens, f.logger)
	if err != nil {
		return Quote{}, err
	}
	amountIn, err := ToBaseUnits(amount, inMeta.Decimals)
	if err != nil {
		return Quote{}, err
	}
	slot0, err := dex.FetchSlot0(ctx, b.pool)
	if err != nil {
		return Quote{}, err
	}
	limit, err := pricemath.SqrtPriceLimit(slot0.SqrtPriceX96, intent.SlippageBps, zeroForOne)
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "derive price limit", err)
	}

	values, err := quoter.Read(ctx, "quote", quoteParams{
		Pool:              b.pool.Address,
		AmountIn:          amountIn,
		ZeroForOne:        zeroForOne,
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return Quote{}, err
	}
	if len(values) < 3 {
		return Quote{}, clierr.New(clierr.CodeInternal, "quoter returned too few values")
	}
	amountOut, err := contract.AsBigInt(values[0])
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "decode quote", err)
	}
	sqrtAfter, err := contract.AsBigInt(values[1])
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "decode quote", err)
	}
	tickAfter, err := contract.Int24(values[2])
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "decode quote", err)
	}

	f.logger.Debug("quote", zap.String("amount_in", amountIn.String()), zap.String("amount_out", amountOut.String()))
	return Quote{
		InputToken:        string(inRole),
		OutputToken:       string(outRole),
		AmountIn:          amount.String(),
		AmountOut:         FormatUnits(amountOut, outMeta.Decimals),
		AmountOutRaw:      amountOut.String(),
		SqrtPriceX96After: sqrtAfter.String(),
		TickAfter:         tickAfter,
	}, nil
}

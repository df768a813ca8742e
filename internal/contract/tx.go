package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/wallet"
)

// PendingTx is a broadcast transaction that has not been confirmed yet.
type PendingTx struct {
	Hash   common.Hash
	Method string
	From   common.Address
	To     common.Address
	Nonce  uint64
	Gas    uint64

	msg     ethereum.CallMsg
	binding *Binding
}

func (a *Adapter) read(ctx context.Context, b *Binding, method string, args ...interface{}) ([]interface{}, error) {
	op := b.op(method)
	if !b.session.IsConnected() {
		return nil, clierr.Wrap(clierr.CodeWalletUnavailable, op, wallet.ErrSessionClosed)
	}
	data, err := b.ABI.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "encode "+op, err)
	}

	ctx, cancel := b.session.Bound(ctx)
	defer cancel()

	msg := ethereum.CallMsg{From: b.session.Account(), To: &b.Address, Data: data}
	out, err := a.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, classify(ctx, op, &b.ABI, err)
	}
	if len(out) == 0 && len(b.ABI.Methods[method].Outputs) > 0 {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("%s returned no data; is %s deployed on this chain?", op, b.Address.Hex()))
	}
	values, err := b.ABI.Unpack(method, out)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "decode "+op, err)
	}
	return values, nil
}

func (a *Adapter) transact(ctx context.Context, b *Binding, method string, args ...interface{}) (*PendingTx, error) {
	op := b.op(method)
	session := b.session
	if !session.IsConnected() {
		return nil, clierr.Wrap(clierr.CodeWalletUnavailable, op, wallet.ErrSessionClosed)
	}
	data, err := b.ABI.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "encode "+op, err)
	}

	ctx, cancel := session.Bound(ctx)
	defer cancel()

	from := session.Account()
	msg := ethereum.CallMsg{From: from, To: &b.Address, Value: big.NewInt(0), Data: data}

	gasLimit, err := a.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, classify(ctx, "estimate gas for "+op, &b.ABI, err)
	}
	gasLimit = uint64(float64(gasLimit) * a.opts.GasMultiplier)

	tipCap, err := a.resolveTipCap(ctx)
	if err != nil {
		return nil, err
	}
	header, err := a.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, classify(ctx, "fetch latest header", nil, err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap, err := resolveFeeCap(baseFee, tipCap, a.opts.MaxFeeGwei)
	if err != nil {
		return nil, err
	}
	nonce, err := a.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, classify(ctx, "fetch nonce", nil, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   session.ChainID(),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &b.Address,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := session.SignTx(ctx, tx, op)
	if err != nil {
		return nil, wallet.Classify("sign "+op, err)
	}
	if err := a.backend.SendTransaction(ctx, signed); err != nil {
		return nil, classify(ctx, "broadcast "+op, &b.ABI, err)
	}

	a.logger.Info("transaction submitted",
		zap.String("method", op),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
	)
	return &PendingTx{
		Hash:    signed.Hash(),
		Method:  op,
		From:    from,
		To:      b.Address,
		Nonce:   nonce,
		Gas:     gasLimit,
		msg:     msg,
		binding: b,
	}, nil
}

// Wait polls for the receipt. A mined but failed transaction is replayed at
// its block to recover the revert reason.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	a := p.binding.adapter
	ctx, cancel := p.binding.session.Bound(ctx)
	defer cancel()
	waitCtx, cancelWait := context.WithTimeout(ctx, a.opts.ReceiptTimeout)
	defer cancelWait()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := a.backend.TransactionReceipt(waitCtx, p.Hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return receipt, nil
			}
			return receipt, p.failure(ctx, receipt)
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			a.logger.Debug("receipt poll failed", zap.String("tx", p.Hash.Hex()), zap.Error(err))
		}
		select {
		case <-waitCtx.Done():
			return nil, p.waitError(ctx, waitCtx)
		case <-ticker.C:
		}
	}
}

func (p *PendingTx) waitError(ctx, waitCtx context.Context) error {
	if errors.Is(context.Cause(ctx), wallet.ErrSessionClosed) {
		return clierr.Wrap(clierr.CodeWalletUnavailable, fmt.Sprintf("wallet disconnected; %s may still be mined", p.Hash.Hex()), wallet.ErrSessionClosed)
	}
	return clierr.Wrap(clierr.CodeNetwork, fmt.Sprintf("timed out waiting for receipt of %s", p.Hash.Hex()), waitCtx.Err())
}

func (p *PendingTx) failure(ctx context.Context, receipt *types.Receipt) error {
	a := p.binding.adapter
	_, err := a.backend.CallContract(ctx, p.msg, receipt.BlockNumber)
	if err != nil {
		if reason, ok := revertReason(err, &p.binding.ABI); ok {
			return clierr.Revert(p.Method+" reverted", reason, err)
		}
		a.logger.Debug("revert replay failed", zap.String("tx", p.Hash.Hex()), zap.Error(err))
	}
	return clierr.Revert(p.Method+" reverted", "", nil)
}

func (a *Adapter) resolveTipCap(ctx context.Context) (*big.Int, error) {
	if strings.TrimSpace(a.opts.MaxPriorityFeeGwei) != "" {
		v, err := ParseGwei(a.opts.MaxPriorityFeeGwei)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeConfig, "parse max priority fee", err)
		}
		return v, nil
	}
	tipCap, err := a.backend.SuggestGasTipCap(ctx)
	if err != nil {
		fallback := big.NewInt(2_000_000_000)
		a.logger.Warn("tip cap suggestion failed; using fallback", zap.String("tip_cap_wei", fallback.String()), zap.Error(err))
		return fallback, nil
	}
	return tipCap, nil
}

func resolveFeeCap(baseFee, tipCap *big.Int, overrideGwei string) (*big.Int, error) {
	if strings.TrimSpace(overrideGwei) != "" {
		v, err := ParseGwei(overrideGwei)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeConfig, "parse max fee", err)
		}
		if v.Cmp(tipCap) < 0 {
			return nil, clierr.New(clierr.CodeConfig, "max fee must be >= max priority fee")
		}
		return v, nil
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)
	return feeCap, nil
}

// ParseGwei converts a decimal gwei string to wei.
func ParseGwei(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return nil, fmt.Errorf("empty gwei value")
	}
	gwei, err := decimal.NewFromString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric value %q", v)
	}
	if gwei.IsNegative() {
		return nil, fmt.Errorf("value must be non-negative")
	}
	wei := gwei.Shift(9)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("value must resolve to an integer wei amount")
	}
	return wei.BigInt(), nil
}

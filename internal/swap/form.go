// Package swap validates and submits swap and liquidity requests against a deployment.
package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapDesk/internal/contract"
	"swapDesk/internal/dex"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/journal"
	"swapDesk/internal/pricemath"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

type Config struct {
	MaxSlippageBps int
	// ApproveMax grants the manager an unlimited allowance instead of the exact amount.
	ApproveMax bool
}

// Recorder persists submission records. *journal.Store implements it.
type Recorder interface {
	Save(entry journal.Entry) error
}

// Form drives swaps and liquidity adds for one deployment.
type Form struct {
	adapter *contract.Adapter
	dep     registry.Deployment
	cfg     Config
	journal Recorder
	tokens  *dex.TokenMetaCache
	decoder *dex.Decoder
	logger  *zap.Logger
}

func NewForm(adapter *contract.Adapter, dep registry.Deployment, cfg Config, recorder Recorder, logger *zap.Logger) (*Form, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSlippageBps <= 0 {
		cfg.MaxSlippageBps = DefaultMaxSlippageBps
	}
	if cfg.MaxSlippageBps >= 10_000 {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("max slippage %d bps leaves no price bound", cfg.MaxSlippageBps))
	}
	decoder, err := dex.NewDecoder(dep)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "build event decoder", err)
	}
	return &Form{
		adapter: adapter,
		dep:     dep,
		cfg:     cfg,
		journal: recorder,
		tokens:  dex.NewTokenMetaCache(),
		decoder: decoder,
		logger:  logger.With(zap.String("deployment", dep.Name)),
	}, nil
}

// Receipt is the outcome of a confirmed submission.
type Receipt struct {
	ID                string   `json:"id,omitempty"`
	Kind              string   `json:"kind"`
	TxHash            string   `json:"tx_hash"`
	BlockNumber       uint64   `json:"block_number"`
	GasUsed           uint64   `json:"gas_used"`
	Approvals         []string `json:"approvals,omitempty"`
	InputToken        string   `json:"input_token,omitempty"`
	OutputToken       string   `json:"output_token,omitempty"`
	AmountIn          string   `json:"amount_in,omitempty"`
	ZeroForOne        bool     `json:"zero_for_one"`
	SqrtPriceLimitX96 string   `json:"sqrt_price_limit_x96,omitempty"`
	Amount0           string   `json:"amount0,omitempty"`
	Amount1           string   `json:"amount1,omitempty"`
	LowerTick         *int32   `json:"lower_tick,omitempty"`
	UpperTick         *int32   `json:"upper_tick,omitempty"`
	LowerPrice        string   `json:"lower_price,omitempty"`
	UpperPrice        string   `json:"upper_price,omitempty"`
	Liquidity         string   `json:"liquidity,omitempty"`
	Expected0         string   `json:"expected_amount0,omitempty"`
	Expected1         string   `json:"expected_amount1,omitempty"`
}

type bindings struct {
	session *wallet.Session
	token0  *contract.Binding
	token1  *contract.Binding
	pool    *contract.Binding
	manager *contract.Binding
}

func (b bindings) token(role registry.Role) *contract.Binding {
	if role == registry.RoleToken0 {
		return b.token0
	}
	return b.token1
}

func (f *Form) bind(session *wallet.Session, roles ...registry.Role) (bindings, error) {
	out := bindings{session: session}
	for _, role := range roles {
		b, err := f.adapter.Bind(role, f.dep, session)
		if err != nil {
			return bindings{}, err
		}
		switch role {
		case registry.RoleToken0:
			out.token0 = b
		case registry.RoleToken1:
			out.token1 = b
		case registry.RolePool:
			out.pool = b
		case registry.RoleManager:
			out.manager = b
		}
	}
	return out, nil
}

var pairRoles = []registry.Role{registry.RoleToken0, registry.RoleToken1, registry.RolePool, registry.RoleManager}

// Submit validates intent, then approves the manager if needed and swaps.
// Validation failures return before any contract call.
func (f *Form) Submit(ctx context.Context, session *wallet.Session, intent Intent) (Receipt, error) {
	if err := intent.Validate(f.cfg.MaxSlippageBps); err != nil {
		return Receipt{}, err
	}
	amount, _ := positiveAmount("amount in", intent.AmountIn)

	b, err := f.bind(session, pairRoles...)
	if err != nil {
		return Receipt{}, err
	}
	inRole, outRole, err := f.resolvePair(ctx, b, intent.InputToken, intent.OutputToken)
	if err != nil {
		return Receipt{}, err
	}
	zeroForOne := inRole == registry.RoleToken0
	in := b.token(inRole)
	inMeta, err := dex.FetchTokenMeta(ctx, in, f.tokens, f.logger)
	if err != nil {
		return Receipt{}, err
	}
	amountIn, err := ToBaseUnits(amount, inMeta.Decimals)
	if err != nil {
		return Receipt{}, err
	}

	entry := journal.NewEntry("swap", f.dep.Name, session.ChainID().String(), session.Account().Hex(), intent.params())
	f.record(&entry)

	slot0, err := dex.FetchSlot0(ctx, b.pool)
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}
	limit, err := pricemath.SqrtPriceLimit(slot0.SqrtPriceX96, intent.SlippageBps, zeroForOne)
	if err != nil {
		return Receipt{}, f.fail(&entry, clierr.Wrap(clierr.CodeInternal, "derive price limit", err))
	}

	approvals, err := f.ensureAllowance(ctx, in, b.manager.Address, amountIn, &entry)
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}

	data, err := callbackData(b.token0.Address, b.token1.Address, session.Account())
	if err != nil {
		return Receipt{}, f.fail(&entry, clierr.Wrap(clierr.CodeInternal, "encode callback data", err))
	}
	pending, err := b.manager.Transact(ctx, "swap", b.pool.Address, zeroForOne, amountIn, limit, data)
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}
	f.submitted(&entry, pending)

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return Receipt{}, f.fail(&entry, err)
	}

	out := Receipt{
		ID:                entry.ID,
		Kind:              "swap",
		TxHash:            pending.Hash.Hex(),
		BlockNumber:       blockOf(receipt),
		GasUsed:           receipt.GasUsed,
		Approvals:         approvals,
		InputToken:        string(inRole),
		OutputToken:       string(outRole),
		AmountIn:          amountIn.String(),
		ZeroForOne:        zeroForOne,
		SqrtPriceLimitX96: limit.String(),
	}
	if swap, ok := f.decoder.DecodeSwap(receipt, b.pool.Address); ok {
		out.Amount0 = swap.Amount0
		out.Amount1 = swap.Amount1
	}
	f.confirm(&entry)
	f.logger.Info("swap confirmed",
		zap.String("tx", out.TxHash),
		zap.Bool("zero_for_one", zeroForOne),
		zap.String("amount_in", out.AmountIn),
	)
	return out, nil
}

// resolvePair maps the entered tokens onto token0/token1.
func (f *Form) resolvePair(ctx context.Context, b bindings, input, output string) (registry.Role, registry.Role, error) {
	inRole, err := f.resolveToken(ctx, b, input)
	if err != nil {
		return "", "", err
	}
	outRole, err := f.resolveToken(ctx, b, output)
	if err != nil {
		return "", "", err
	}
	if inRole == outRole {
		return "", "", invalid("input and output token must differ")
	}
	return inRole, outRole, nil
}

func (f *Form) resolveToken(ctx context.Context, b bindings, input string) (registry.Role, error) {
	input = strings.TrimSpace(input)
	if role, ok := registry.ParseRole(input); ok {
		if role != registry.RoleToken0 && role != registry.RoleToken1 {
			return "", invalid(fmt.Sprintf("%s is not a pool token", role))
		}
		return role, nil
	}
	if common.IsHexAddress(input) {
		role, ok := f.dep.RoleOf(common.HexToAddress(input))
		if !ok || (role != registry.RoleToken0 && role != registry.RoleToken1) {
			return "", invalid(fmt.Sprintf("%s is not a token of deployment %s", input, f.dep.Name))
		}
		return role, nil
	}
	for _, role := range []registry.Role{registry.RoleToken0, registry.RoleToken1} {
		meta, err := dex.FetchTokenMeta(ctx, b.token(role), f.tokens, f.logger)
		if err != nil {
			return "", err
		}
		if meta.Symbol != "" && strings.EqualFold(meta.Symbol, input) {
			return role, nil
		}
	}
	return "", invalid(fmt.Sprintf("unknown token %q", input))
}

// ensureAllowance approves spender when the current allowance is short and
// waits for the approval to be mined.
func (f *Form) ensureAllowance(ctx context.Context, token *contract.Binding, spender common.Address, amount *big.Int, entry *journal.Entry) ([]string, error) {
	owner := token.Session().Account()
	values, err := token.Read(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	current, err := contract.AsBigInt(values[0])
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "decode allowance", err)
	}
	if current.Cmp(amount) >= 0 {
		return nil, nil
	}

	grant := amount
	if f.cfg.ApproveMax {
		grant = math.MaxBig256
	}
	pending, err := token.Transact(ctx, "approve", spender, grant)
	if err != nil {
		return nil, err
	}
	f.submitted(entry, pending)
	if _, err := pending.Wait(ctx); err != nil {
		return nil, err
	}
	f.logger.Info("allowance approved", zap.String("token", token.Address.Hex()), zap.String("tx", pending.Hash.Hex()))
	return []string{pending.Hash.Hex()}, nil
}

var callbackArgs = func() abi.Arguments {
	addressType, _ := abi.NewType("address", "", nil)
	return abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: addressType}}
}()

// callbackData is what the manager hands back to itself in the pool callback:
// abi.encode(token0, token1, payer).
func callbackData(token0, token1, payer common.Address) ([]byte, error) {
	return callbackArgs.Pack(token0, token1, payer)
}

func blockOf(receipt *types.Receipt) uint64 {
	if receipt == nil || receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}

func (f *Form) record(entry *journal.Entry) {
	if f.journal == nil {
		return
	}
	entry.Touch()
	if err := f.journal.Save(*entry); err != nil {
		f.logger.Warn("journal write failed", zap.String("id", entry.ID), zap.Error(err))
	}
}

func (f *Form) submitted(entry *journal.Entry, pending *contract.PendingTx) {
	entry.Status = journal.StatusSubmitted
	entry.TxHashes = append(entry.TxHashes, pending.Hash.Hex())
	f.record(entry)
}

func (f *Form) confirm(entry *journal.Entry) {
	entry.Status = journal.StatusConfirmed
	f.record(entry)
}

// fail records err against the entry and returns it unchanged.
func (f *Form) fail(entry *journal.Entry, err error) error {
	entry.Status = journal.StatusFailed
	entry.Error = err.Error()
	var typed *clierr.Error
	if errors.As(err, &typed) {
		entry.ErrorCode = typed.Code.String()
		entry.Reason = typed.Reason
	}
	f.record(entry)
	f.logger.Warn("submission failed", zap.String("id", entry.ID), zap.String("kind", entry.Kind), zap.Error(err))
	return err
}

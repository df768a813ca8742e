package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"swapDesk/internal/contract"
	"swapDesk/internal/contract/contracttest"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

const testChainID = 31337

type harness struct {
	backend *contracttest.Backend
	wallet  *contracttest.Provider
	panel   *wallet.Panel
	adapter *contract.Adapter
	dep     registry.Deployment
	session *wallet.Session
}

func newHarness(t *testing.T, deployment string) *harness {
	t.Helper()
	dep, err := registry.Lookup(deployment)
	if err != nil {
		t.Fatalf("lookup %s: %v", deployment, err)
	}
	backend := contracttest.NewBackend(testChainID)
	provider := contracttest.NewProvider(testChainID)
	panel := wallet.NewPanel(provider, nil)
	opts := contract.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.ReceiptTimeout = time.Second
	adapter := contract.NewAdapter(backend, panel, opts, nil)
	session, err := adapter.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return &harness{backend: backend, wallet: provider, panel: panel, adapter: adapter, dep: dep, session: session}
}

func (h *harness) bind(t *testing.T, role registry.Role) *contract.Binding {
	t.Helper()
	b, err := h.adapter.Bind(role, h.dep, h.session)
	if err != nil {
		t.Fatalf("bind %s: %v", role, err)
	}
	return b
}

func TestBindUnboundRole(t *testing.T) {
	h := newHarness(t, "app")
	_, err := h.adapter.Bind(registry.RoleQuoter, h.dep, h.session)
	if !clierr.HasCode(err, clierr.CodeUnboundRole) {
		t.Fatalf("expected unbound role, got %v", err)
	}
}

func TestBindRequiresConnectedSession(t *testing.T) {
	h := newHarness(t, "ui")
	h.panel.Disconnect()
	_, err := h.adapter.Bind(registry.RolePool, h.dep, h.session)
	if !clierr.HasCode(err, clierr.CodeWalletUnavailable) {
		t.Fatalf("expected wallet unavailable, got %v", err)
	}
}

func TestBindChainMismatch(t *testing.T) {
	h := newHarness(t, "ui")
	h.dep.ChainID = 1
	_, err := h.adapter.Bind(registry.RolePool, h.dep, h.session)
	if !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestCallReadsViewMethod(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	token0, _ := h.dep.Address(registry.RoleToken0)
	h.backend.Returns(pool.Address, pool.ABI, "token0", token0)

	res, err := h.adapter.Call(context.Background(), pool, "token0")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.Tx != nil {
		t.Fatalf("view call should not produce a transaction")
	}
	got, err := contract.AsAddress(res.Outputs[0])
	if err != nil || got != token0 {
		t.Fatalf("unexpected output %v (%v)", res.Outputs, err)
	}
	if len(h.backend.Sent) != 0 || h.wallet.Signed != 0 {
		t.Fatalf("view call must not sign or send")
	}
}

func TestCallUnknownMethod(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	_, err := pool.Call(context.Background(), "drain")
	if !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestCallTransactsAndWaits(t *testing.T) {
	h := newHarness(t, "ui")
	token := h.bind(t, registry.RoleToken0)
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Returns(token.Address, token.ABI, "approve", true)

	res, err := token.Call(context.Background(), "approve", manager, big.NewInt(1000))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Tx == nil {
		t.Fatalf("expected pending transaction")
	}
	if h.wallet.Signed != 1 || len(h.backend.Sent) != 1 {
		t.Fatalf("expected one signed transaction, signed=%d sent=%d", h.wallet.Signed, len(h.backend.Sent))
	}
	sent := h.backend.Sent[0]
	if sent.Gas() <= 100_000 {
		t.Fatalf("gas multiplier not applied: %d", sent.Gas())
	}
	if sent.ChainId().Int64() != testChainID {
		t.Fatalf("chain id mismatch: %s", sent.ChainId())
	}

	receipt, err := res.Tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Fatalf("unexpected status %d", receipt.Status)
	}
}

func TestRevertReasonSurfacesOnEstimate(t *testing.T) {
	h := newHarness(t, "ui")
	token := h.bind(t, registry.RoleToken0)
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Handle(token.Address, token.ABI, "approve", func([]interface{}) ([]interface{}, error) {
		return nil, contracttest.RevertError{Reason: "ERC20: approve paused"}
	})

	_, err := token.Transact(context.Background(), "approve", manager, big.NewInt(1))
	typed, ok := clierr.As(err)
	if !ok || typed.Code != clierr.CodeContractRevert {
		t.Fatalf("expected contract revert, got %v", err)
	}
	if typed.Reason != "ERC20: approve paused" {
		t.Fatalf("unexpected reason %q", typed.Reason)
	}
	if h.wallet.Signed != 0 {
		t.Fatalf("reverting call must not be signed")
	}
	if !h.session.IsConnected() {
		t.Fatalf("revert must not end the session")
	}
}

func TestMinedRevertIsReplayedForReason(t *testing.T) {
	h := newHarness(t, "ui")
	token := h.bind(t, registry.RoleToken0)
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Returns(token.Address, token.ABI, "approve", true)
	h.backend.ReceiptStatus = types.ReceiptStatusFailed

	pending, err := token.Transact(context.Background(), "approve", manager, big.NewInt(1))
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	h.backend.CallErr = contracttest.RevertError{Reason: "paused"}

	_, err = pending.Wait(context.Background())
	typed, ok := clierr.As(err)
	if !ok || typed.Code != clierr.CodeContractRevert || typed.Reason != "paused" {
		t.Fatalf("expected revert with reason, got %v", err)
	}
}

func TestNodeRejectionIsClassified(t *testing.T) {
	h := newHarness(t, "ui")
	token := h.bind(t, registry.RoleToken0)
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Returns(token.Address, token.ABI, "approve", true)
	h.backend.SendErr = errors.New("nonce too low: next nonce 4, tx nonce 3")

	_, err := token.Transact(context.Background(), "approve", manager, big.NewInt(1))
	if !clierr.HasCode(err, clierr.CodeTransactionRejected) {
		t.Fatalf("expected transaction rejected, got %v", err)
	}
}

func TestUserRejectedSignature(t *testing.T) {
	h := newHarness(t, "ui")
	token := h.bind(t, registry.RoleToken0)
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Returns(token.Address, token.ABI, "approve", true)
	h.wallet.SignErr = wallet.ErrRejected

	_, err := token.Transact(context.Background(), "approve", manager, big.NewInt(1))
	if !clierr.HasCode(err, clierr.CodeUserRejected) {
		t.Fatalf("expected user rejected, got %v", err)
	}
	if len(h.backend.Sent) != 0 {
		t.Fatalf("rejected transaction must not be broadcast")
	}
}

func TestNetworkFailure(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	h.backend.CallErr = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")

	_, err := pool.Read(context.Background(), "liquidity")
	if !clierr.HasCode(err, clierr.CodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestCallAfterDisconnect(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	h.panel.Disconnect()

	_, err := pool.Read(context.Background(), "liquidity")
	if !clierr.HasCode(err, clierr.CodeWalletUnavailable) {
		t.Fatalf("expected wallet unavailable, got %v", err)
	}
}

func TestEmptyResponseIsConfigError(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	_, err := pool.Read(context.Background(), "liquidity")
	if !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error for missing code, got %v", err)
	}
}

func TestDecodeRevertCustomError(t *testing.T) {
	managerABI, err := registry.BuiltinABI(registry.KindManager)
	if err != nil {
		t.Fatalf("manager abi: %v", err)
	}
	custom := managerABI.Errors["SlippageCheckFailed"]
	packed, err := custom.Inputs.Pack(big.NewInt(5), big.NewInt(7))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	data := append(append([]byte{}, custom.ID[:4]...), packed...)
	if got := contract.DecodeRevert(data, &managerABI); got != "SlippageCheckFailed(5, 7)" {
		t.Fatalf("unexpected reason %q", got)
	}

	panicData := append([]byte{0x4e, 0x48, 0x7b, 0x71}, common.LeftPadBytes([]byte{0x11}, 32)...)
	if got := contract.DecodeRevert(panicData, nil); got != "panic 0x11 (arithmetic overflow or underflow)" {
		t.Fatalf("unexpected panic reason %q", got)
	}

	if got := contract.DecodeRevert([]byte{0xde, 0xad, 0xbe, 0xef}, nil); got != "custom error 0xdeadbeef" {
		t.Fatalf("unexpected unknown reason %q", got)
	}
}

func TestWatchBackfillsInOrderAndFallsBackToPolling(t *testing.T) {
	h := newHarness(t, "ui")
	subscribing := contracttest.SubscribingBackend{Backend: h.backend}
	opts := contract.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	adapter := contract.NewAdapter(subscribing, h.panel, opts, nil)
	pool, err := adapter.Bind(registry.RolePool, h.dep, h.session)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	swapID, _ := pool.EventID("Swap")
	other := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	h.backend.AddLogs(
		types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 3, Index: 0},
		types.Log{Address: other, Topics: []common.Hash{swapID}, BlockNumber: 3, Index: 1},
		types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 5, Index: 0},
	)

	sub, err := adapter.Watch(context.Background(), pool, contract.WatchOptions{FromBlock: 1, BatchSize: 2, Events: []string{"Swap"}})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Unsubscribe()

	expectBlock(t, sub, 3)
	expectBlock(t, sub, 5)

	// Delivered by the polling loop after the backfill.
	h.backend.AddLogs(types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 8})
	expectBlock(t, sub, 8)
}

func TestWatchCatchesUpBlocksMinedBeforeSubscribing(t *testing.T) {
	h := newHarness(t, "ui")
	live := &contracttest.LiveBackend{Backend: h.backend}
	adapter := contract.NewAdapter(live, h.panel, contract.DefaultOptions(), nil)
	pool, err := adapter.Bind(registry.RolePool, h.dep, h.session)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	swapID, _ := pool.EventID("Swap")
	h.backend.AddLogs(types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 5})
	// Block 6 lands after the backfill read the head but before the
	// subscription is live, so the node never pushes it.
	live.OnSubscribe = func() {
		h.backend.AddLogs(types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 6})
	}

	sub, err := adapter.Watch(context.Background(), pool, contract.WatchOptions{FromBlock: 1})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Unsubscribe()

	expectBlock(t, sub, 5)
	expectBlock(t, sub, 6)

	go func() {
		live.Push(types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 6})
		live.Push(types.Log{Address: pool.Address, Topics: []common.Hash{swapID}, BlockNumber: 7})
	}()
	// The pushed copy of block 6 was already delivered by the catch-up.
	expectBlock(t, sub, 7)
}

func TestWatchStopsWhenSessionEnds(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	sub, err := h.adapter.Watch(context.Background(), pool, contract.WatchOptions{PollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	h.panel.Disconnect()
	select {
	case _, ok := <-sub.Logs():
		if ok {
			t.Fatalf("no logs expected")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed after disconnect")
	}
	select {
	case err := <-sub.Err():
		t.Fatalf("disconnect should not report an error, got %v", err)
	default:
	}
	sub.Unsubscribe()
}

func TestWatchUnknownEvent(t *testing.T) {
	h := newHarness(t, "ui")
	pool := h.bind(t, registry.RolePool)
	_, err := h.adapter.Watch(context.Background(), pool, contract.WatchOptions{Events: []string{"Flash"}})
	if !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestTipCapFallbackIsLogged(t *testing.T) {
	h := newHarness(t, "ui")
	h.backend.TipCapErr = errors.New("method not found")
	core, logs := observer.New(zapcore.WarnLevel)
	adapter := contract.NewAdapter(h.backend, h.panel, contract.DefaultOptions(), zap.New(core))
	token, err := adapter.Bind(registry.RoleToken0, h.dep, h.session)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	manager, _ := h.dep.Address(registry.RoleManager)
	h.backend.Returns(token.Address, token.ABI, "approve", true)

	if _, err := token.Transact(context.Background(), "approve", manager, big.NewInt(1)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if tip := h.backend.Sent[0].GasTipCap(); tip.Int64() != 2_000_000_000 {
		t.Fatalf("fallback tip cap not applied: %s", tip)
	}
	warned := logs.FilterMessageSnippet("tip cap").All()
	if len(warned) != 1 || warned[0].ContextMap()["error"] != "method not found" {
		t.Fatalf("fallback not logged: %+v", logs.All())
	}
}

func TestParseGwei(t *testing.T) {
	got, err := contract.ParseGwei("1.5")
	if err != nil || got.Int64() != 1_500_000_000 {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if got, err := contract.ParseGwei(" 30 "); err != nil || got.String() != "30000000000" {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if _, err := contract.ParseGwei("ten"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
	if _, err := contract.ParseGwei("0.0000000001"); err == nil {
		t.Fatalf("expected error for sub-wei value")
	}
	if _, err := contract.ParseGwei("-1"); err == nil {
		t.Fatalf("expected error for negative value")
	}
}

func expectBlock(t *testing.T, sub *contract.Subscription, block uint64) {
	t.Helper()
	select {
	case log, ok := <-sub.Logs():
		if !ok {
			t.Fatalf("subscription closed before block %d", block)
		}
		if log.BlockNumber != block {
			t.Fatalf("expected block %d, got %d", block, log.BlockNumber)
		}
	case err := <-sub.Err():
		t.Fatalf("subscription failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for block %d", block)
	}
}

var _ rpc.DataError = contracttest.RevertError{}

// Package contracttest provides an in-memory chain backend and wallet
// provider for exercising contract bindings without a node.
package contracttest

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Responder answers one contract method. Returning an error simulates a revert
// or node failure for both eth_call and gas estimation.
type Responder func(args []interface{}) ([]interface{}, error)

type handlerKey struct {
	address  common.Address
	selector [4]byte
}

type handler struct {
	method abi.Method
	fn     Responder
}

// Backend is a scripted chain. The zero value is not usable; call NewBackend.
type Backend struct {
	mu sync.Mutex

	chainID  *big.Int
	head     uint64
	handlers map[handlerKey]handler
	logs     []types.Log
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt

	// ReceiptStatus is applied to receipts of sent transactions.
	ReceiptStatus uint64
	EstimateErr   error
	SendErr       error
	CallErr       error
	TipCapErr     error
	BaseFee       *big.Int

	Sent  []*types.Transaction
	Calls []ethereum.CallMsg
}

func NewBackend(chainID int64) *Backend {
	return &Backend{
		chainID:       big.NewInt(chainID),
		head:          1,
		handlers:      make(map[handlerKey]handler),
		balances:      make(map[common.Address]*big.Int),
		receipts:      make(map[common.Hash]*types.Receipt),
		ReceiptStatus: types.ReceiptStatusSuccessful,
		BaseFee:       big.NewInt(1_000_000_000),
	}
}

// Handle registers fn for calls to method on address.
func (b *Backend) Handle(address common.Address, contractABI abi.ABI, method string, fn Responder) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("contracttest: unknown method %s", method))
	}
	var key handlerKey
	key.address = address
	copy(key.selector[:], m.ID)
	b.mu.Lock()
	b.handlers[key] = handler{method: m, fn: fn}
	b.mu.Unlock()
}

// Returns registers a fixed result for method.
func (b *Backend) Returns(address common.Address, contractABI abi.ABI, method string, outputs ...interface{}) {
	b.Handle(address, contractABI, method, func([]interface{}) ([]interface{}, error) {
		return outputs, nil
	})
}

// AddLogs appends logs and advances the head to the highest log block.
func (b *Backend) AddLogs(logs ...types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, log := range logs {
		b.logs = append(b.logs, log)
		if log.BlockNumber > b.head {
			b.head = log.BlockNumber
		}
	}
}

func (b *Backend) SetHead(n uint64) {
	b.mu.Lock()
	b.head = n
	b.mu.Unlock()
}

func (b *Backend) SetBalance(account common.Address, wei *big.Int) {
	b.mu.Lock()
	b.balances[account] = new(big.Int).Set(wei)
	b.mu.Unlock()
}

// MethodCalls returns how many eth_call or estimate requests hit method.
func (b *Backend) MethodCalls(contractABI abi.ABI, method string) int {
	m := contractABI.Methods[method]
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, msg := range b.Calls {
		if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(m.ID) {
			n++
		}
	}
	return n
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

func (b *Backend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.head), BaseFee: b.BaseFee}, nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.Calls = append(b.Calls, msg)
	callErr := b.CallErr
	b.mu.Unlock()
	if callErr != nil {
		return nil, callErr
	}
	return b.dispatch(msg)
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	b.Calls = append(b.Calls, msg)
	estimateErr := b.EstimateErr
	b.mu.Unlock()
	if estimateErr != nil {
		return 0, estimateErr
	}
	if _, err := b.dispatch(msg); err != nil {
		return 0, err
	}
	return 100_000, nil
}

func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	if b.TipCapErr != nil {
		return nil, b.TipCapErr
	}
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.Sent)), nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}
	b.Sent = append(b.Sent, tx)
	b.head++
	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      b.ReceiptStatus,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.head),
		GasUsed:     tx.Gas(),
	}
	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *Backend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.Log
	for _, log := range b.logs {
		if query.FromBlock != nil && log.BlockNumber < query.FromBlock.Uint64() {
			continue
		}
		if query.ToBlock != nil && log.BlockNumber > query.ToBlock.Uint64() {
			continue
		}
		if !matchAddress(query.Addresses, log.Address) || !matchTopics(query.Topics, log.Topics) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (b *Backend) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *Backend) dispatch(msg ethereum.CallMsg) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, nil
	}
	var key handlerKey
	key.address = *msg.To
	copy(key.selector[:], msg.Data[:4])
	b.mu.Lock()
	h, ok := b.handlers[key]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("contracttest: decode %s input: %w", h.method.Name, err)
	}
	outputs, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(outputs...)
}

func matchAddress(addresses []common.Address, addr common.Address) bool {
	if len(addresses) == 0 {
		return true
	}
	for _, a := range addresses {
		if a == addr {
			return true
		}
	}
	return false
}

func matchTopics(filter [][]common.Hash, topics []common.Hash) bool {
	for i, options := range filter {
		if len(options) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		found := false
		for _, want := range options {
			if topics[i] == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SubscribingBackend adds a log subscription that the node refuses, as HTTP
// endpoints do.
type SubscribingBackend struct {
	*Backend
}

func (SubscribingBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, rpc.ErrNotificationsUnsupported
}

// LiveBackend accepts log subscriptions. OnSubscribe runs before the
// subscription is returned; Push delivers a live log and blocks until read.
type LiveBackend struct {
	*Backend
	OnSubscribe func()

	mu   sync.Mutex
	subs []*liveSub
}

type liveSub struct {
	ch   chan<- types.Log
	errc chan error
	done chan struct{}
	once sync.Once
}

func (s *liveSub) Err() <-chan error { return s.errc }

func (s *liveSub) Unsubscribe() { s.once.Do(func() { close(s.done) }) }

func (b *LiveBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if b.OnSubscribe != nil {
		b.OnSubscribe()
	}
	sub := &liveSub{ch: ch, errc: make(chan error), done: make(chan struct{})}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Push sends log to every open subscription.
func (b *LiveBackend) Push(log types.Log) {
	b.mu.Lock()
	subs := append([]*liveSub(nil), b.subs...)
	b.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub.ch <- log:
		case <-sub.done:
		}
	}
}

// RevertError mimics the JSON-RPC error a node returns for a reverted call.
type RevertError struct {
	Reason string
}

func (e RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

func (e RevertError) ErrorCode() int { return 3 }

func (e RevertError) ErrorData() interface{} {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(e.Reason)
	return "0x08c379a0" + hex.EncodeToString(packed)
}

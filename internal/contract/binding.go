package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

// Binding is a contract handle tied to one wallet session.
type Binding struct {
	Role    registry.Role
	Address common.Address
	ABI     abi.ABI

	session *wallet.Session
	adapter *Adapter
}

func (b *Binding) Session() *wallet.Session { return b.session }

// Call is shorthand for Adapter.Call on this binding.
func (b *Binding) Call(ctx context.Context, method string, args ...interface{}) (Result, error) {
	return b.adapter.Call(ctx, b, method, args...)
}

// Read runs method as eth_call without signing, whatever its mutability.
// Quoters report results from nonpayable entry points this way.
func (b *Binding) Read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if _, ok := b.ABI.Methods[method]; !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s has no method %s", b.Role, method))
	}
	return b.adapter.read(ctx, b, method, args...)
}

// Transact signs and broadcasts a state-changing method.
func (b *Binding) Transact(ctx context.Context, method string, args ...interface{}) (*PendingTx, error) {
	if _, ok := b.ABI.Methods[method]; !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s has no method %s", b.Role, method))
	}
	return b.adapter.transact(ctx, b, method, args...)
}

// EventID returns topic0 for a named event.
func (b *Binding) EventID(name string) (common.Hash, error) {
	event, ok := b.ABI.Events[name]
	if !ok {
		return common.Hash{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s has no event %s", b.Role, name))
	}
	return event.ID, nil
}

func (b *Binding) op(method string) string {
	return fmt.Sprintf("%s.%s", b.Role, method)
}

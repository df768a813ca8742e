package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUnavailable means no usable provider or key material was found.
	ErrUnavailable = errors.New("wallet provider unavailable")
	// ErrRejected means the user declined a provider prompt.
	ErrRejected = errors.New("request rejected by user")
	// ErrSessionClosed is the cancellation cause for work bound to an ended session.
	ErrSessionClosed = errors.New("wallet session closed")
)

// Provider is the external wallet: it hands out an account and signs transactions.
type Provider interface {
	RequestAccount(ctx context.Context) (common.Address, *big.Int, error)
	SignTx(ctx context.Context, req SignRequest) (*types.Transaction, error)
}

// SignRequest describes a transaction awaiting the user's signature.
type SignRequest struct {
	Account common.Address
	ChainID *big.Int
	Tx      *types.Transaction
	// Summary is a human-readable description shown when confirming.
	Summary string
}

// EventKind classifies provider-pushed events.
type EventKind int

const (
	EventAccountsChanged EventKind = iota
	EventChainChanged
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventAccountsChanged:
		return "accounts_changed"
	case EventChainChanged:
		return "chain_changed"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ProviderEvent is pushed by a provider when its account, network or connection changes.
// A zero Account on EventAccountsChanged means the provider exposes no account.
type ProviderEvent struct {
	Kind    EventKind
	Account common.Address
	ChainID *big.Int
}

// Notifier is implemented by providers that push events.
type Notifier interface {
	Events() <-chan ProviderEvent
}

package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Session is a connected wallet. Only the Panel that created it can end it.
type Session struct {
	account  common.Address
	chainID  *big.Int
	provider Provider

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu     sync.RWMutex
	closed bool
}

func newSession(account common.Address, chainID *big.Int, provider Provider) *Session {
	ctx, cancel := context.WithCancelCause(context.Background())
	id := new(big.Int)
	if chainID != nil {
		id.Set(chainID)
	}
	return &Session{
		account:  account,
		chainID:  id,
		provider: provider,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Session) Account() common.Address { return s.account }

// ChainID returns a copy of the session's chain id.
func (s *Session) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Bound derives a context that is also cancelled, with cause ErrSessionClosed, when the session ends.
func (s *Session) Bound(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(s.ctx, func() {
		cancel(ErrSessionClosed)
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// WhileConnected runs fn only if the session is connected and keeps it connected until fn returns.
// Ending the session waits for running callbacks, so none start or run after Disconnect returns.
func (s *Session) WhileConnected(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn()
}

// SignTx asks the provider to sign tx for this session's account.
func (s *Session) SignTx(ctx context.Context, tx *types.Transaction, summary string) (*types.Transaction, error) {
	if !s.IsConnected() {
		return nil, ErrSessionClosed
	}
	if s.provider == nil {
		return nil, ErrUnavailable
	}
	signed, err := s.provider.SignTx(ctx, SignRequest{
		Account: s.account,
		ChainID: s.ChainID(),
		Tx:      tx,
		Summary: summary,
	})
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return nil, fmt.Errorf("provider returned no transaction")
	}
	return signed, nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel(ErrSessionClosed)
}

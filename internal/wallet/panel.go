package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "swapDesk/internal/errors"
)

// State is the wallet connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateChange is published on every transition.
type StateChange struct {
	From    State
	To      State
	Account common.Address
	ChainID *big.Int
	Err     error
}

// Panel owns the wallet connection. It is the only component that creates or ends sessions.
// It never reconnects on its own.
type Panel struct {
	provider Provider
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	session  *Session
	lastErr  error
	attempt  uint64
	watchers map[int]chan StateChange
	nextID   int

	listenOnce sync.Once
}

func NewPanel(provider Provider, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{
		provider: provider,
		logger:   logger,
		watchers: make(map[int]chan StateChange),
	}
}

// State returns the current connection state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error that moved the panel into StateError.
func (p *Panel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Session returns the active session, if connected.
func (p *Panel) Session() (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateConnected || p.session == nil {
		return nil, false
	}
	return p.session, true
}

// Connect requests an account from the provider.
// Connecting while connected returns the existing session.
func (p *Panel) Connect(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	switch p.state {
	case StateConnected:
		session := p.session
		p.mu.Unlock()
		return session, nil
	case StateConnecting:
		p.mu.Unlock()
		return nil, clierr.New(clierr.CodeUsage, "wallet connection already in progress")
	}
	p.attempt++
	attempt := p.attempt
	p.transitionLocked(StateConnecting, nil)
	p.mu.Unlock()

	if p.provider == nil {
		err := clierr.Wrap(clierr.CodeWalletUnavailable, "no wallet provider configured", ErrUnavailable)
		p.fail(attempt, err)
		return nil, err
	}

	account, chainID, err := p.provider.RequestAccount(ctx)
	if err != nil {
		err = Classify("connect wallet", err)
		p.fail(attempt, err)
		return nil, err
	}

	p.mu.Lock()
	if p.attempt != attempt || p.state != StateConnecting {
		p.mu.Unlock()
		return nil, clierr.New(clierr.CodeWalletUnavailable, "wallet connection cancelled")
	}
	session := newSession(account, chainID, p.provider)
	p.session = session
	p.lastErr = nil
	p.transitionLocked(StateConnected, nil)
	p.mu.Unlock()

	p.logger.Info("wallet connected",
		zap.String("account", account.Hex()),
		zap.String("chain_id", session.ChainID().String()),
	)

	if notifier, ok := p.provider.(Notifier); ok {
		p.listenOnce.Do(func() {
			go p.listen(notifier.Events())
		})
	}

	return session, nil
}

// Disconnect ends the active session. Work bound to the session is cancelled
// and no WhileConnected callback runs once Disconnect returns.
func (p *Panel) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectLocked()
}

// HandleProviderEvent applies a provider-pushed event.
// Account or chain changes replace the session; existing bindings become invalid.
func (p *Panel) HandleProviderEvent(ev ProviderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateConnected || p.session == nil {
		return
	}

	current := p.session
	switch ev.Kind {
	case EventDisconnected:
		p.logger.Info("provider disconnected")
		p.disconnectLocked()
	case EventAccountsChanged:
		if ev.Account == (common.Address{}) {
			p.logger.Info("provider exposes no account")
			p.disconnectLocked()
			return
		}
		if ev.Account == current.Account() {
			return
		}
		p.replaceLocked(ev.Account, current.ChainID())
	case EventChainChanged:
		if ev.ChainID == nil || ev.ChainID.Cmp(current.ChainID()) == 0 {
			return
		}
		p.replaceLocked(current.Account(), ev.ChainID)
	}
}

// Watch streams state changes until cancel is called. Slow readers miss changes.
func (p *Panel) Watch() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 16)
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Panel) listen(events <-chan ProviderEvent) {
	for ev := range events {
		p.HandleProviderEvent(ev)
	}
}

func (p *Panel) fail(attempt uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt != attempt || p.state != StateConnecting {
		return
	}
	p.lastErr = err
	p.transitionLocked(StateError, err)
	p.logger.Warn("wallet connect failed", zap.Error(err))
}

func (p *Panel) disconnectLocked() {
	if p.session != nil {
		p.session.end()
		p.session = nil
	}
	p.lastErr = nil
	if p.state == StateDisconnected {
		return
	}
	p.transitionLocked(StateDisconnected, nil)
}

func (p *Panel) replaceLocked(account common.Address, chainID *big.Int) {
	p.session.end()
	p.session = newSession(account, chainID, p.provider)
	p.logger.Info("wallet session replaced",
		zap.String("account", account.Hex()),
		zap.String("chain_id", chainID.String()),
	)
	p.transitionLocked(StateConnected, nil)
}

func (p *Panel) transitionLocked(to State, err error) {
	change := StateChange{From: p.state, To: to, Err: err}
	if to == StateConnected && p.session != nil {
		change.Account = p.session.Account()
		change.ChainID = p.session.ChainID()
	}
	p.state = to
	for _, ch := range p.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}

// Classify maps a provider or session error onto the error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrRejected):
		return clierr.Wrap(clierr.CodeUserRejected, op+": rejected in wallet", err)
	case errors.Is(err, ErrSessionClosed):
		return clierr.Wrap(clierr.CodeWalletUnavailable, op+": wallet disconnected", err)
	default:
		return clierr.Wrap(clierr.CodeWalletUnavailable, op+": wallet unavailable", err)
	}
}

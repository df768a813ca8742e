package contract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
	"swapDesk/internal/wallet"
)

// Adapter turns registry entries and a wallet session into callable bindings.
// It never retries: every failure is returned to the caller.
type Adapter struct {
	backend Backend
	panel   *wallet.Panel
	opts    Options
	logger  *zap.Logger
}

func NewAdapter(backend Backend, panel *wallet.Panel, opts Options, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		backend: backend,
		panel:   panel,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// Backend returns the chain client used by the adapter.
func (a *Adapter) Backend() Backend { return a.backend }

// Connect asks the wallet panel for a session.
func (a *Adapter) Connect(ctx context.Context) (*wallet.Session, error) {
	if a.panel == nil {
		return nil, clierr.Wrap(clierr.CodeWalletUnavailable, "no wallet panel", wallet.ErrUnavailable)
	}
	return a.panel.Connect(ctx)
}

// Bind returns a binding for role. The binding is usable while session stays connected.
func (a *Adapter) Bind(role registry.Role, dep registry.Deployment, session *wallet.Session) (*Binding, error) {
	parsed, ok := dep.ABI(role)
	if !ok {
		return nil, clierr.New(clierr.CodeUnboundRole, fmt.Sprintf("deployment %s has no %s binding", dep.Name, role))
	}
	address, _ := dep.Address(role)
	if session == nil || !session.IsConnected() {
		return nil, clierr.Wrap(clierr.CodeWalletUnavailable, fmt.Sprintf("bind %s", role), wallet.ErrSessionClosed)
	}
	if dep.ChainID != 0 && session.ChainID().Uint64() != dep.ChainID {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("deployment %s targets chain %d, wallet is on chain %s", dep.Name, dep.ChainID, session.ChainID()))
	}
	return &Binding{
		Role:    role,
		Address: address,
		ABI:     parsed,
		session: session,
		adapter: a,
	}, nil
}

// Result holds decoded outputs for reads or a pending transaction for writes.
type Result struct {
	Outputs []interface{}
	Tx      *PendingTx
}

// Call invokes method on the binding. View and pure methods run as eth_call;
// everything else is signed through the session and broadcast.
func (a *Adapter) Call(ctx context.Context, b *Binding, method string, args ...interface{}) (Result, error) {
	m, ok := b.ABI.Methods[method]
	if !ok {
		return Result{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s has no method %s", b.Role, method))
	}
	if m.IsConstant() {
		outputs, err := a.read(ctx, b, method, args...)
		return Result{Outputs: outputs}, err
	}
	tx, err := a.transact(ctx, b, method, args...)
	return Result{Tx: tx}, err
}

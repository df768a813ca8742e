package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	clierr "swapDesk/internal/errors"
)

type fakeProvider struct {
	account common.Address
	chainID *big.Int
	err     error
	events  chan ProviderEvent
}

func (p *fakeProvider) RequestAccount(context.Context) (common.Address, *big.Int, error) {
	if p.err != nil {
		return common.Address{}, nil, p.err
	}
	return p.account, p.chainID, nil
}

func (p *fakeProvider) SignTx(_ context.Context, req SignRequest) (*types.Transaction, error) {
	return req.Tx, nil
}

type notifyingProvider struct {
	fakeProvider
}

func (p *notifyingProvider) Events() <-chan ProviderEvent { return p.events }

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		account: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		chainID: big.NewInt(31337),
	}
}

func TestPanelConnectDisconnect(t *testing.T) {
	panel := NewPanel(newFakeProvider(), nil)
	changes, stop := panel.Watch()
	defer stop()

	if panel.State() != StateDisconnected {
		t.Fatalf("initial state: %s", panel.State())
	}

	session, err := panel.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if panel.State() != StateConnected || !session.IsConnected() {
		t.Fatalf("expected connected, got %s", panel.State())
	}
	if session.ChainID().Int64() != 31337 {
		t.Fatalf("chain id mismatch: %s", session.ChainID())
	}

	again, err := panel.Connect(context.Background())
	if err != nil || again != session {
		t.Fatalf("second connect should return the active session")
	}

	panel.Disconnect()
	if panel.State() != StateDisconnected || session.IsConnected() {
		t.Fatalf("expected disconnected")
	}
	if _, ok := panel.Session(); ok {
		t.Fatalf("session should be gone")
	}

	want := []State{StateConnecting, StateConnected, StateDisconnected}
	for _, state := range want {
		select {
		case change := <-changes:
			if change.To != state {
				t.Fatalf("transition mismatch: want %s got %s", state, change.To)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing transition to %s", state)
		}
	}
}

func TestPanelConnectRejected(t *testing.T) {
	provider := newFakeProvider()
	provider.err = ErrRejected
	panel := NewPanel(provider, nil)

	_, err := panel.Connect(context.Background())
	if !clierr.HasCode(err, clierr.CodeUserRejected) {
		t.Fatalf("expected user rejected, got %v", err)
	}
	if panel.State() != StateError {
		t.Fatalf("expected error state, got %s", panel.State())
	}
	if panel.Err() == nil {
		t.Fatalf("expected stored error")
	}

	provider.err = nil
	if _, err := panel.Connect(context.Background()); err != nil {
		t.Fatalf("retry connect: %v", err)
	}
	if panel.State() != StateConnected {
		t.Fatalf("expected connected after retry, got %s", panel.State())
	}
}

func TestPanelWithoutProvider(t *testing.T) {
	panel := NewPanel(nil, nil)
	_, err := panel.Connect(context.Background())
	if !clierr.HasCode(err, clierr.CodeWalletUnavailable) {
		t.Fatalf("expected wallet unavailable, got %v", err)
	}
	if panel.State() != StateError {
		t.Fatalf("expected error state, got %s", panel.State())
	}
}

func TestPanelKeepsTypedProviderErrors(t *testing.T) {
	provider := newFakeProvider()
	provider.err = clierr.Wrap(clierr.CodeNetwork, "read chain id", errors.New("dial tcp: refused"))
	panel := NewPanel(provider, nil)

	_, err := panel.Connect(context.Background())
	if !clierr.HasCode(err, clierr.CodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSessionCancellationOnDisconnect(t *testing.T) {
	panel := NewPanel(newFakeProvider(), nil)
	session, err := panel.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := session.Bound(context.Background())
	defer cancel()

	panel.Disconnect()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("bound context not cancelled")
	}
	if !errors.Is(context.Cause(ctx), ErrSessionClosed) {
		t.Fatalf("unexpected cause: %v", context.Cause(ctx))
	}

	ran := false
	err = session.WhileConnected(func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrSessionClosed) || ran {
		t.Fatalf("callback should not run after disconnect")
	}
}

func TestDisconnectWaitsForRunningCallbacks(t *testing.T) {
	panel := NewPanel(newFakeProvider(), nil)
	session, err := panel.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	finished := false
	go func() {
		_ = session.WhileConnected(func() error {
			close(entered)
			<-release
			mu.Lock()
			finished = true
			mu.Unlock()
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		panel.Disconnect()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("disconnect returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Fatalf("callback did not finish before disconnect returned")
	}
}

func TestProviderPushedEvents(t *testing.T) {
	provider := &notifyingProvider{fakeProvider: *newFakeProvider()}
	provider.events = make(chan ProviderEvent)
	panel := NewPanel(provider, nil)

	first, err := panel.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	next := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	provider.events <- ProviderEvent{Kind: EventAccountsChanged, Account: next}

	waitFor(t, func() bool {
		session, ok := panel.Session()
		return ok && session.Account() == next
	})
	if first.IsConnected() {
		t.Fatalf("previous session should end on account change")
	}

	provider.events <- ProviderEvent{Kind: EventDisconnected}
	waitFor(t, func() bool { return panel.State() == StateDisconnected })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

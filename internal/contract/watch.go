package contract

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/wallet"
)

const defaultWatchBatch = 2000

// WatchOptions selects which logs a subscription delivers.
type WatchOptions struct {
	// FromBlock backfills history before following the head. Zero means head only.
	FromBlock    uint64
	Events       []string
	BatchSize    uint64
	PollInterval time.Duration
}

// Subscription delivers logs in chain order until it is stopped, fails or the
// wallet session ends. Logs is closed when delivery stops.
type Subscription struct {
	logs   chan types.Log
	errc   chan error
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Subscription) Logs() <-chan types.Log { return s.logs }

// Err yields at most one error and is never closed.
func (s *Subscription) Err() <-chan error { return s.errc }

// Unsubscribe stops delivery and waits for the worker to exit.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Watch follows logs emitted by the binding's contract.
func (a *Adapter) Watch(ctx context.Context, b *Binding, opts WatchOptions) (*Subscription, error) {
	if !b.session.IsConnected() {
		return nil, clierr.Wrap(clierr.CodeWalletUnavailable, "watch "+string(b.Role), wallet.ErrSessionClosed)
	}
	var topic0 []common.Hash
	for _, name := range opts.Events {
		id, err := b.EventID(name)
		if err != nil {
			return nil, err
		}
		topic0 = append(topic0, id)
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultWatchBatch
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = a.opts.PollInterval
	}

	query := ethereum.FilterQuery{Addresses: []common.Address{b.Address}}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}

	runCtx, cancel := b.session.Bound(ctx)
	sub := &Subscription{
		logs:   make(chan types.Log),
		errc:   make(chan error, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	w := &watcher{adapter: a, binding: b, opts: opts, query: query, sub: sub}
	go w.run(runCtx)
	return sub, nil
}

type watcher struct {
	adapter *Adapter
	binding *Binding
	opts    WatchOptions
	query   ethereum.FilterQuery
	sub     *Subscription
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.sub.done)
	defer close(w.sub.logs)
	logger := w.adapter.logger.With(zap.String("role", string(w.binding.Role)), zap.String("address", w.binding.Address.Hex()))

	var next uint64
	if w.opts.FromBlock > 0 {
		head, err := w.adapter.backend.BlockNumber(ctx)
		if err != nil {
			w.fail(ctx, "read head block", err)
			return
		}
		if w.opts.FromBlock <= head {
			if !w.backfill(ctx, w.opts.FromBlock, head) {
				return
			}
		}
		next = head + 1
		logger.Info("backfill complete", zap.Uint64("from", w.opts.FromBlock), zap.Uint64("to", head))
	}

	if subscriber, ok := w.adapter.backend.(LogSubscriber); ok {
		err := w.follow(ctx, subscriber, next)
		if err == nil || !errors.Is(err, rpc.ErrNotificationsUnsupported) {
			if err != nil {
				w.fail(ctx, "subscribe logs", err)
			}
			return
		}
		logger.Info("log subscriptions unsupported; polling", zap.Duration("interval", w.opts.PollInterval))
	}
	w.poll(ctx, next)
}

// follow streams live logs. A nil return means the context ended.
// When next is set, blocks mined between the backfill and the subscription
// are fetched first and live logs below the new head are dropped as already
// delivered. The subscription buffers logs pushed meanwhile.
func (w *watcher) follow(ctx context.Context, subscriber LogSubscriber, next uint64) error {
	ch := make(chan types.Log)
	es, err := subscriber.SubscribeFilterLogs(ctx, w.query, ch)
	if err != nil {
		return err
	}
	defer es.Unsubscribe()

	if next > 0 {
		head, err := w.adapter.backend.BlockNumber(ctx)
		if err != nil {
			w.fail(ctx, "read head block", err)
			return nil
		}
		if head >= next {
			if !w.backfill(ctx, next, head) {
				return nil
			}
			next = head + 1
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-es.Err():
			if err == nil {
				return nil
			}
			return err
		case log := <-ch:
			if log.BlockNumber < next {
				continue
			}
			if !w.forward(ctx, log) {
				return nil
			}
		}
	}
}

func (w *watcher) poll(ctx context.Context, next uint64) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		head, err := w.adapter.backend.BlockNumber(ctx)
		if err != nil {
			w.fail(ctx, "read head block", err)
			return
		}
		if next == 0 {
			next = head + 1
		}
		if head >= next {
			if !w.backfill(ctx, next, head) {
				return
			}
			next = head + 1
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *watcher) backfill(ctx context.Context, from, to uint64) bool {
	ranges, err := SplitRange(from, to, w.opts.BatchSize)
	if err != nil {
		w.fail(ctx, "split block range", err)
		return false
	}
	for _, r := range ranges {
		query := w.query
		query.FromBlock = new(big.Int).SetUint64(r.From)
		query.ToBlock = new(big.Int).SetUint64(r.To)
		logs, err := w.adapter.backend.FilterLogs(ctx, query)
		if err != nil {
			w.fail(ctx, "filter logs", err)
			return false
		}
		for _, log := range logs {
			if !w.forward(ctx, log) {
				return false
			}
		}
	}
	return true
}

func (w *watcher) forward(ctx context.Context, log types.Log) bool {
	select {
	case w.sub.logs <- log:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail reports err unless the subscription was stopped on purpose.
func (w *watcher) fail(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return
	}
	w.sub.errc <- classify(ctx, op, &w.binding.ABI, err)
}

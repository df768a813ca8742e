// Package feed keeps a capped, ordered history of decoded contract events.
package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"swapDesk/internal/contract"
	"swapDesk/internal/dex"
	"swapDesk/internal/model"
	"swapDesk/internal/storage"
	"swapDesk/internal/wallet"
)

// DefaultCapacity is the number of events retained when no capacity is set.
const DefaultCapacity = 50

const updateBuffer = 64

type Options struct {
	Capacity   int
	Sink       storage.Sink
	Checkpoint *CheckpointStore
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Feed is safe for concurrent use. History survives across Run calls, so a
// feed restarted after a reconnect continues where it stopped.
type Feed struct {
	decoder    *dex.Decoder
	capacity   int
	sink       storage.Sink
	checkpoint *CheckpointStore
	metrics    *Metrics
	logger     *zap.Logger

	mu      sync.Mutex
	events  []model.PoolEvent
	subs    map[int]chan model.PoolEvent
	nextSub int
}

func New(decoder *dex.Decoder, opts Options) *Feed {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Feed{
		decoder:    decoder,
		capacity:   opts.Capacity,
		sink:       opts.Sink,
		checkpoint: opts.Checkpoint,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		events:     make([]model.PoolEvent, 0, opts.Capacity),
		subs:       make(map[int]chan model.PoolEvent),
	}
}

// Append adds event at the tail, evicting the oldest entry when full.
func (f *Feed) Append(event model.PoolEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	evicted := 0
	if len(f.events) >= f.capacity {
		evicted = len(f.events) - f.capacity + 1
		copy(f.events, f.events[evicted:])
		f.events = f.events[:len(f.events)-evicted]
	}
	f.events = append(f.events, event)
	f.metrics.observe(event, evicted, len(f.events))

	for id, ch := range f.subs {
		select {
		case ch <- event:
		default:
			f.logger.Warn("feed subscriber is slow; dropping update", zap.Int("subscriber", id), zap.String("event", event.Key()))
		}
	}
}

// Events returns a snapshot, oldest first.
func (f *Feed) Events() []model.PoolEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PoolEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *Feed) Capacity() int { return f.capacity }

// Updates streams events as they are appended. Call the returned func to stop.
// Updates are dropped for subscribers that fall behind.
func (f *Feed) Updates() (<-chan model.PoolEvent, func()) {
	ch := make(chan model.PoolEvent, updateBuffer)
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Run appends events from sub until ctx ends, the session ends or the
// subscription fails. Only a subscription failure is returned as an error.
// Run stops sub before returning.
func (f *Feed) Run(ctx context.Context, session *wallet.Session, sub *contract.Subscription) error {
	defer sub.Unsubscribe()

	var lastBlock uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return nil
		case err := <-sub.Err():
			return err
		case log, ok := <-sub.Logs():
			if !ok {
				select {
				case err := <-sub.Err():
					return err
				default:
					return nil
				}
			}

			event, err := f.decoder.Decode(log)
			if err != nil {
				f.metrics.decodeFailed()
				f.logger.Debug("event kept undecoded", zap.String("event", event.Key()), zap.Error(err))
			}
			err = session.WhileConnected(func() error {
				f.Append(event)
				return nil
			})
			if errors.Is(err, wallet.ErrSessionClosed) {
				return nil
			}

			if f.sink != nil {
				if err := f.sink.PutEvents(ctx, []model.PoolEvent{event}); err != nil {
					f.logger.Warn("event sink failed", zap.String("event", event.Key()), zap.Error(err))
				}
			}
			if lastBlock != 0 && log.BlockNumber > lastBlock {
				f.saveCheckpoint(lastBlock)
			}
			lastBlock = log.BlockNumber
		}
	}
}

// saveCheckpoint records block once every log up to it has been appended.
func (f *Feed) saveCheckpoint(block uint64) {
	if f.checkpoint == nil {
		return
	}
	if err := f.checkpoint.Save(block); err != nil {
		f.logger.Warn("checkpoint save failed", zap.Uint64("block", block), zap.Error(err))
	}
}

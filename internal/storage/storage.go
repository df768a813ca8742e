// Package storage persists or forwards feed events.
package storage

import (
	"context"
	"errors"

	"swapDesk/internal/model"
)

// Sink receives batches of events in feed order.
type Sink interface {
	PutEvents(ctx context.Context, events []model.PoolEvent) error
	Close() error
}

// Multi fans a batch out to every sink. All sinks see the batch even when one fails.
type Multi []Sink

func (m Multi) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutEvents(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package natspub forwards feed events to NATS subjects.
//
// Subject format:
//
//	<prefix>.<deployment>.<event>
//
// Example:
//
//	swapdesk.events.ui.swap
package natspub

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"

	"swapDesk/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultPrefix = "swapdesk.events"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
	Close()
}

type Publisher struct {
	nc      Conn
	prefix  string
	flushTO time.Duration
}

// Connect dials url with unlimited reconnects.
func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("swapdesk-feed"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(100*time.Millisecond),
		nats.PingInterval(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return New(nc, prefix), nil
}

func New(nc Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{nc: nc, prefix: prefix, flushTO: 2 * time.Second}
}

// PutEvents publishes each event as JSON and flushes once per batch.
func (p *Publisher) PutEvents(_ context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.Key(), err)
		}
		msg := &nats.Msg{
			Subject: Subject(p.prefix, event),
			Data:    data,
			Header:  nats.Header{},
		}
		msg.Header.Set("swapdesk-block", strconv.FormatUint(event.BlockNumber, 10))
		msg.Header.Set("Nats-Msg-Id", event.Key())
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Subject, err)
		}
	}
	return p.nc.FlushTimeout(p.flushTO)
}

func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}

// Subject builds <prefix>.<deployment>.<event> with lower-cased tokens.
func Subject(prefix string, event model.PoolEvent) string {
	deployment := token(event.Deployment)
	name := token(event.EventName)
	return strings.Join([]string{prefix, deployment, name}, ".")
}

func token(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

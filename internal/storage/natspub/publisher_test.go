package natspub

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"swapDesk/internal/model"
)

type fakeConn struct {
	msgs    []*nats.Msg
	flushes int
	closed  bool
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error {
	f.flushes++
	return nil
}

func (f *fakeConn) Drain() error { return nil }
func (f *fakeConn) Close()       { f.closed = true }

func TestPublishSubjectsAndOrder(t *testing.T) {
	conn := &fakeConn{}
	pub := New(conn, "")
	events := []model.PoolEvent{
		{Deployment: "ui", EventName: "Swap", BlockNumber: 7, TxHash: "0xaa", LogIndex: 1},
		{Deployment: "ui", EventName: "Mint", BlockNumber: 8, TxHash: "0xbb", LogIndex: 0},
	}
	if err := pub.PutEvents(context.Background(), events); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(conn.msgs) != 2 || conn.flushes != 1 {
		t.Fatalf("expected 2 messages and one flush, got %d/%d", len(conn.msgs), conn.flushes)
	}
	if conn.msgs[0].Subject != "swapdesk.events.ui.swap" || conn.msgs[1].Subject != "swapdesk.events.ui.mint" {
		t.Fatalf("subjects mismatch: %s %s", conn.msgs[0].Subject, conn.msgs[1].Subject)
	}
	if conn.msgs[0].Header.Get("Nats-Msg-Id") != "0xaa:1" {
		t.Fatalf("dedup header mismatch")
	}
	if err := pub.Close(); err != nil || !conn.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestSubjectSanitizesTokens(t *testing.T) {
	got := Subject("p", model.PoolEvent{Deployment: "my.dep", EventName: ""})
	if got != "p.my_dep.unknown" {
		t.Fatalf("unexpected subject %s", got)
	}
}

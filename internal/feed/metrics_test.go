package feed

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"swapDesk/internal/model"
)

func TestServeReportsBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	if _, err := Serve(busy.Addr().String(), NewMetrics(), nil); err == nil {
		t.Fatalf("expected an error for an address in use")
	}
}

func TestServeExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.observe(model.PoolEvent{Deployment: "ui", EventName: "Swap"}, 0, 1)

	srv, err := Serve("127.0.0.1:0", m, nil)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `swapdesk_feed_events_total{deployment="ui",event="Swap"} 1`) {
		t.Fatalf("metrics missing from scrape:\n%s", body)
	}
}

package feed

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"swapDesk/internal/model"
)

// Metrics counts feed activity on its own registry. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	appended     *prometheus.CounterVec
	evicted      prometheus.Counter
	retained     prometheus.Gauge
	decodeErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		appended: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "swapdesk_feed_events_total", Help: "Events appended to the feed"},
			[]string{"deployment", "event"},
		),
		evicted: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "swapdesk_feed_evicted_total", Help: "Events evicted from the feed history"},
		),
		retained: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "swapdesk_feed_retained", Help: "Events currently held in the feed history"},
		),
		decodeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "swapdesk_feed_decode_errors_total", Help: "Logs appended without a decoded payload"},
		),
	}
	m.registry.MustRegister(m.appended, m.evicted, m.retained, m.decodeErrors)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observe(event model.PoolEvent, evicted, retained int) {
	if m == nil {
		return
	}
	m.appended.WithLabelValues(event.Deployment, event.EventName).Inc()
	m.evicted.Add(float64(evicted))
	m.retained.Set(float64(retained))
}

func (m *Metrics) decodeFailed() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// Serve binds addr and exposes /metrics in the background. Bind failures are
// returned; later serve failures are logged.
func Serve(addr string, m *Metrics, logger *zap.Logger) (*http.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()
	return srv, nil
}

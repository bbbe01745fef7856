// Package metrics exposes the agent's own operational counters — never
// item values — on a separate, opt-in HTTP listener, grounded on the
// corpus's pattern of wrapping host/kernel counters as Prometheus
// gauges/counters behind a dedicated exporter registry.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters the dispatcher, server, and samplers update.
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsFailed   prometheus.Counter
	Dispatched          *prometheus.CounterVec
	SamplerPushes       *prometheus.CounterVec
	RegistrySize        prometheus.Gauge
}

// New builds a Metrics instance with every counter pre-registered, so a
// never-incremented counter still reports 0 rather than being absent.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zabby_agent",
			Name:      "connections_accepted_total",
			Help:      "TCP connections accepted on the ZBXD listener.",
		}),
		ConnectionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zabby_agent",
			Name:      "connections_failed_total",
			Help:      "Connections refused by the rate limiter or that failed before a response was sent.",
		}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zabby_agent",
			Name:      "dispatched_total",
			Help:      "Requests dispatched, by outcome.",
		}, []string{"outcome"}),
		SamplerPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zabby_agent",
			Name:      "sampler_pushes_total",
			Help:      "Snapshots pushed, by sampler name.",
		}, []string{"sampler"}),
		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zabby_agent",
			Name:      "registry_size",
			Help:      "Number of items in the currently published registry snapshot.",
		}),
	}

	reg.MustRegister(m.ConnectionsAccepted, m.ConnectionsFailed, m.Dispatched, m.SamplerPushes, m.RegistrySize)
	return m
}

// Serve runs a promhttp exporter on listenAddr until ctx is canceled. This
// listener never shares a port with the ZBXD protocol listener.
func (m *Metrics) Serve(ctx context.Context, listenAddr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

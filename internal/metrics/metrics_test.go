package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_CountersStartAtZero(t *testing.T) {
	m := New()

	if got := testutil.ToFloat64(m.ConnectionsAccepted); got != 0 {
		t.Errorf("ConnectionsAccepted = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.RegistrySize); got != 0 {
		t.Errorf("RegistrySize = %v, want 0", got)
	}
}

func TestMetrics_IncrementAndObserve(t *testing.T) {
	m := New()

	m.ConnectionsAccepted.Inc()
	m.ConnectionsFailed.Inc()
	m.Dispatched.WithLabelValues("ok").Inc()
	m.Dispatched.WithLabelValues("ok").Inc()
	m.SamplerPushes.WithLabelValues("disk").Inc()
	m.RegistrySize.Set(21)

	if got := testutil.ToFloat64(m.ConnectionsAccepted); got != 1 {
		t.Errorf("ConnectionsAccepted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Dispatched.WithLabelValues("ok")); got != 2 {
		t.Errorf("Dispatched{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SamplerPushes.WithLabelValues("disk")); got != 1 {
		t.Errorf("SamplerPushes{disk} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RegistrySize); got != 21 {
		t.Errorf("RegistrySize = %v, want 21", got)
	}
}

// freePort asks the OS for an ephemeral port, then closes the listener
// immediately so Serve can bind it; Serve itself has no way to report back
// the address it chose.
func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestServe_ExposesMetricsEndpoint(t *testing.T) {
	m := New()
	m.ConnectionsAccepted.Inc()

	addr := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- m.Serve(ctx, addr) }()

	var resp *http.Response
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if !strings.Contains(string(body), "zabby_agent_connections_accepted_total 1") {
		t.Errorf("response body missing expected counter line, got:\n%s", body)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Serve() error after cancel = %v", err)
	}
}

func TestServe_InvalidAddressFails(t *testing.T) {
	m := New()
	err := m.Serve(context.Background(), "not-a-valid-address")
	if err == nil {
		t.Fatal("expected an error for an invalid listen address")
	}
}

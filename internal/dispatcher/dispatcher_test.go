package dispatcher

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus/testutil"

	itemerrors "github.com/blin/zabby-agent/internal/errors"
	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/registry"
	"github.com/blin/zabby-agent/internal/wire"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDispatcher(items ...registry.Item) *Dispatcher {
	snap, err := registry.NewSnapshot(items)
	if err != nil {
		panic(err)
	}
	return New(registry.New(snap), silentLogger())
}

func TestDispatch_Success(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "agent.ping",
		Fn:  func(args []string) (interface{}, error) { return int64(1), nil },
	})

	got := d.Dispatch("agent.ping")
	if got != int64(1) {
		t.Errorf("Dispatch() = %v, want 1", got)
	}
}

func TestDispatch_ParseError_ReturnsNotSupported(t *testing.T) {
	d := newTestDispatcher()
	got := d.Dispatch("vfs.fs.size[/")
	if got != wire.NotSupported {
		t.Errorf("Dispatch() = %v, want %q", got, wire.NotSupported)
	}
}

func TestDispatch_UnknownKey_ReturnsNotSupported(t *testing.T) {
	d := newTestDispatcher()
	got := d.Dispatch("no.such.key")
	if got != wire.NotSupported {
		t.Errorf("Dispatch() = %v, want %q", got, wire.NotSupported)
	}
}

func TestDispatch_WrongArgument_ReturnsNotSupported(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "vfs.fs.size",
		Fn: func(args []string) (interface{}, error) {
			return nil, &itemerrors.WrongArgumentError{Key: "vfs.fs.size", Field: "mode", Message: "unknown mode"}
		},
	})

	got := d.Dispatch("vfs.fs.size[/,bogus]")
	if got != wire.NotSupported {
		t.Errorf("Dispatch() = %v, want %q", got, wire.NotSupported)
	}
}

func TestDispatch_UnexpectedError_ReturnsNotSupported(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "vm.memory.size",
		Fn: func(args []string) (interface{}, error) {
			return nil, fmt.Errorf("unexpected failure reading /proc/meminfo")
		},
	})

	got := d.Dispatch("vm.memory.size[total]")
	if got != wire.NotSupported {
		t.Errorf("Dispatch() = %v, want %q", got, wire.NotSupported)
	}
}

func TestDispatch_PanicIsContained(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "system.cpu.util",
		Fn: func(args []string) (interface{}, error) {
			panic("boom")
		},
	})

	got := d.Dispatch("system.cpu.util[all,user,avg1]")
	if got != wire.NotSupported {
		t.Errorf("Dispatch() = %v, want %q", got, wire.NotSupported)
	}
}

func TestDispatch_ReloadSwapsSnapshotForNewRequests(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "agent.version",
		Fn:  func(args []string) (interface{}, error) { return "1.0.0", nil },
	})

	if got := d.Dispatch("agent.version"); got != "1.0.0" {
		t.Fatalf("Dispatch() = %v, want 1.0.0", got)
	}

	newSnap, err := registry.NewSnapshot([]registry.Item{{
		Key: "agent.version",
		Fn:  func(args []string) (interface{}, error) { return "2.0.0", nil },
	}})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	d.Registry.Publish(newSnap)

	if got := d.Dispatch("agent.version"); got != "2.0.0" {
		t.Errorf("Dispatch() after reload = %v, want 2.0.0", got)
	}
}

func TestDispatch_ObservesOutcomeMetrics(t *testing.T) {
	d := newTestDispatcher(registry.Item{
		Key: "agent.ping",
		Fn:  func(args []string) (interface{}, error) { return int64(1), nil },
	})
	d.Metrics = metrics.New()

	d.Dispatch("agent.ping")
	d.Dispatch("no.such.key")
	d.Dispatch("[")

	if got := testutil.ToFloat64(d.Metrics.Dispatched.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(d.Metrics.Dispatched.WithLabelValues("not-supported")); got != 1 {
		t.Errorf("not-supported count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(d.Metrics.Dispatched.WithLabelValues("protocol-error")); got != 1 {
		t.Errorf("protocol-error count = %v, want 1", got)
	}
}

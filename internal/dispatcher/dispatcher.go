// Package dispatcher parses a raw key, looks it up in the live registry
// snapshot, invokes the matching provider, and contains every failure mode
// behind a single sentinel so no partial or poisoned response ever reaches
// the wire.
package dispatcher

import (
	"fmt"

	"github.com/sirupsen/logrus"

	itemerrors "github.com/blin/zabby-agent/internal/errors"
	"github.com/blin/zabby-agent/internal/keyparser"
	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/registry"
	"github.com/blin/zabby-agent/internal/wire"
)

// Dispatcher binds a Registry and a Logger. It holds no other state: it
// never mutates the registry or any sampler.
type Dispatcher struct {
	Registry *registry.Registry
	Log      *logrus.Logger

	// Metrics is optional; nil disables self-observability counters.
	Metrics *metrics.Metrics
}

// New constructs a Dispatcher. log may be nil, in which case a default
// logrus.Logger is used.
func New(reg *registry.Registry, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{Registry: reg, Log: log}
}

// Dispatch runs the full pipeline for one raw key and returns the value to
// hand the codec. It never returns an error: every failure mode collapses
// to the ZBX_NOTSUPPORTED sentinel, per spec.md §4.3 and §7.
func (d *Dispatcher) Dispatch(rawKey string) interface{} {
	name, args, err := keyparser.Parse(rawKey)
	if err != nil {
		d.Log.WithError(err).WithField("raw_key", rawKey).Warn("dispatch: key parse failed")
		d.observe("protocol-error")
		return wire.NotSupported
	}

	snap := d.Registry.Load()
	item, ok := snap.Lookup(name)
	if !ok {
		d.Log.WithField("key", name).Warn("dispatch: unknown key")
		d.observe("not-supported")
		return wire.NotSupported
	}

	value, err := invoke(item, args)
	if err != nil {
		if _, wrongArg := err.(*itemerrors.WrongArgumentError); wrongArg {
			d.Log.WithError(err).WithField("key", name).Warn("dispatch: wrong argument")
		} else {
			d.Log.WithError(err).WithField("key", name).Error("dispatch: provider failed")
		}
		d.observe("not-supported")
		return wire.NotSupported
	}

	d.observe("ok")
	return value
}

func (d *Dispatcher) observe(outcome string) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.Dispatched.WithLabelValues(outcome).Inc()
}

// invoke recovers from a panicking provider the same way the dispatcher
// contains a returned error: any unexpected exception becomes
// ZBX_NOTSUPPORTED at the call site, never a crashed connection.
func invoke(item registry.Item, args []string) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &itemerrors.HostOSError{
				Operation: "invoke " + item.Key,
				Err:       panicError{r},
			}
		}
	}()
	return item.Fn(args)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	if e, ok := p.v.(error); ok {
		return e.Error()
	}
	return fmt.Sprintf("panic: %v", p.v)
}

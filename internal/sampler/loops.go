package sampler

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/provider"
)

// MaxShift is the largest window, in seconds, any bundled item requests
// (the 900s/avg15 window). Histories are sized maxShift+1 so the oldest
// slot is always available as a fallback when the requested window
// exceeds the collected history.
const MaxShift = 900

// DefaultInterval is the cadence at which both bundled samplers poll the
// host OS.
const DefaultInterval = 1 * time.Second

// DiskStats runs a background loop pushing each disk device's cumulative
// I/O counters into idx once per interval.
type DiskStats struct {
	HostOS   provider.HostOS
	Index    *Index
	Interval time.Duration
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
}

// Run blocks, polling until ctx is canceled.
func (d *DiskStats) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pushOnce()
		}
	}
}

func (d *DiskStats) pushOnce() {
	devices, err := d.HostOS.DiskDevices()
	if err != nil {
		if d.Log != nil {
			d.Log.WithError(err).Warn("disk-stats sampler: list devices failed")
		}
		return
	}

	now := monotonicSeconds()
	for _, device := range devices {
		counters, err := d.HostOS.DiskDeviceCounters(device)
		if err != nil {
			if d.Log != nil {
				d.Log.WithError(err).WithField("device", device).Warn("disk-stats sampler: read counters failed")
			}
			continue
		}
		d.Index.Push(device, counters, now)
		if d.Metrics != nil {
			d.Metrics.SamplerPushes.WithLabelValues("disk").Inc()
		}
	}
}

// CPUTimes runs a background loop pushing each CPU's cumulative time
// bucket vector into idx once per interval.
type CPUTimes struct {
	HostOS   provider.HostOS
	Index    *Index
	Interval time.Duration
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
}

// Run blocks, polling until ctx is canceled.
func (c *CPUTimes) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pushOnce()
		}
	}
}

func (c *CPUTimes) pushOnce() {
	count, err := c.HostOS.CPUCount()
	if err != nil {
		if c.Log != nil {
			c.Log.WithError(err).Warn("cpu-times sampler: cpu count failed")
		}
		return
	}

	now := monotonicSeconds()
	for cpu := 0; cpu < count; cpu++ {
		times, err := c.HostOS.CPUTimes(cpu)
		if err != nil {
			if c.Log != nil {
				c.Log.WithError(err).WithField("cpu", cpu).Warn("cpu-times sampler: read times failed")
			}
			continue
		}
		c.Index.Push(cpuSubject(cpu), times, now)
		if c.Metrics != nil {
			c.Metrics.SamplerPushes.WithLabelValues("cpu").Inc()
		}
	}
}

// cpuSubject names the Index subject for cpu id n.
func cpuSubject(cpu int) string {
	return strconv.Itoa(cpu)
}

var monotonicStart = time.Now()

// monotonicSeconds returns seconds elapsed since this process started,
// matching the deque age arithmetic in §4.5: ages are differences
// between two readings of this clock, never wall-clock timestamps.
func monotonicSeconds() float64 {
	return time.Since(monotonicStart).Seconds()
}

// Now returns the same monotonic clock reading the sampler loops stamp
// their pushes with. Item functions call this to compute get_shifted's
// "now" argument so ages are measured on one consistent clock.
func Now() float64 {
	return monotonicSeconds()
}

// CPUSubject names the Index subject for cpu id n; exported so item
// functions can look up the same key the sampler pushed under.
func CPUSubject(cpu int) string {
	return cpuSubject(cpu)
}

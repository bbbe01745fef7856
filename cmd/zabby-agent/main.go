// Command zabby-agent runs the ZBXD passive-protocol host-monitoring
// daemon: it loads configuration, builds the item registry, and serves
// requests until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blin/zabby-agent/internal/config"
	"github.com/blin/zabby-agent/internal/daemon"
	"github.com/blin/zabby-agent/internal/dispatcher"
	"github.com/blin/zabby-agent/internal/hostos"
	"github.com/blin/zabby-agent/internal/items"
	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/registry"
	"github.com/blin/zabby-agent/internal/sampler"
	"github.com/blin/zabby-agent/internal/security"
	"github.com/blin/zabby-agent/internal/server"
)

// Default connection rate limit: a single source IP may open up to 50
// connections/second before a 30-second cooldown kicks in; at most 10,000
// source IPs are tracked at once.
const (
	defaultRateLimitPerSecond = 50
	defaultRateLimitCooldown  = 30 * time.Second
	defaultRateLimitMaxIPs    = 10000
)

var (
	configPath = flag.String("c", "/etc/zabby-agent/zabby-agent.conf", "Path to the configuration file")
	daemonize  = flag.Bool("d", false, "Daemonize: re-exec detached and exit the parent")
	pidFile    = flag.String("pid-file", "", "Override the configured pid-file path")
	errorLog   = flag.String("error-log", "", "Override the configured error-log path")
)

func init() {
	flag.StringVar(configPath, "config", *configPath, "Path to the configuration file (long form of -c)")
	flag.BoolVar(daemonize, "daemonize", *daemonize, "Daemonize (long form of -d)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zabby-agent: "+err.Error())
		os.Exit(1)
	}

	if *pidFile != "" {
		cfg.Agent.PidFile = *pidFile
	}
	if *errorLog != "" {
		cfg.Agent.ErrorLog = *errorLog
	}

	if *daemonize && !daemon.IsDaemonChild() {
		if err := daemon.Daemonize(cfg.Agent.ErrorLog); err != nil {
			fmt.Fprintln(os.Stderr, "zabby-agent: daemonize: "+err.Error())
			os.Exit(1)
		}
	}

	log := newLogger(cfg.Agent.ErrorLog)

	var pf *daemon.PidFile
	if cfg.Agent.PidFile != "" {
		pf, err = daemon.AcquirePidFile(cfg.Agent.PidFile)
		if err != nil {
			log.WithError(err).Fatal("failed to acquire pid-file")
		}
		defer pf.Release()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host := hostos.New()
	diskIdx := sampler.NewIndex(sampler.MaxShift)
	cpuIdx := sampler.NewIndex(sampler.MaxShift)

	mtr := metrics.New()

	diskSampler := &sampler.DiskStats{HostOS: host, Index: diskIdx, Log: log, Metrics: mtr}
	cpuSampler := &sampler.CPUTimes{HostOS: host, Index: cpuIdx, Log: log, Metrics: mtr}
	go diskSampler.Run(ctx)
	go cpuSampler.Run(ctx)

	snap, err := buildSnapshot(cfg, host, diskIdx, cpuIdx)
	if err != nil {
		log.WithError(err).Fatal("failed to build initial item registry")
	}
	mtr.RegistrySize.Set(float64(snap.Len()))
	reg := registry.New(snap)

	disp := dispatcher.New(reg, log)
	disp.Metrics = mtr

	limiter := security.NewRateLimiter(defaultRateLimitPerSecond, defaultRateLimitCooldown, defaultRateLimitMaxIPs)

	listenAddr := fmt.Sprintf("%s:%d", cfg.Agent.ListenHost, cfg.Agent.ListenPort)
	srv, err := server.New(listenAddr, disp,
		server.WithLogger(log),
		server.WithMetrics(mtr),
		server.WithRateLimiter(limiter),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to construct server")
	}

	if cfg.Agent.ReloadOnChange {
		watcher := &config.Watcher{
			Path:      *configPath,
			ItemFiles: cfg.Agent.ItemFiles,
			Registry:  reg,
			Log:       log,
			Metrics:   mtr,
			Rebuild: func(path string) (*registry.Snapshot, error) {
				reloaded, err := config.Load(path)
				if err != nil {
					return nil, err
				}
				return buildSnapshot(reloaded, host, diskIdx, cpuIdx)
			},
		}
		if err := watcher.Start(); err != nil {
			log.WithError(err).Fatal("failed to start config watcher")
		}
		go watcher.Run(ctx)
	}

	if cfg.Agent.MetricsListen != "" {
		go func() {
			if err := mtr.Serve(ctx, cfg.Agent.MetricsListen); err != nil {
				log.WithError(err).Warn("metrics listener stopped")
			}
		}()
	}

	log.WithField("addr", listenAddr).Info("zabby-agent starting")
	if err := srv.Serve(ctx); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// buildSnapshot assembles the bundled items plus any UserParameter items
// from the configured item files into one registry snapshot.
func buildSnapshot(cfg *config.Config, host *hostos.Linux, diskIdx, cpuIdx *sampler.Index) (*registry.Snapshot, error) {
	all := items.Build(host, diskIdx, cpuIdx)

	for _, path := range cfg.Agent.ItemFiles {
		defs, err := items.ParseUserParameterFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, items.BuildUserParameterItems(host, defs, items.DefaultShellTimeout)...)
	}

	return registry.NewSnapshot(all)
}

func newLogger(errorLogPath string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if errorLogPath == "" {
		return log
	}
	f, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.WithError(err).Warn("failed to open error-log, logging to stderr")
		return log
	}
	log.SetOutput(f)
	return log
}

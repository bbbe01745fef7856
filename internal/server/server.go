// Package server runs the TCP accept loop that serves the ZBXD protocol:
// one connection per request, a detached worker per connection, and a
// bounded total request time.
package server

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blin/zabby-agent/internal/dispatcher"
	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/security"
	"github.com/blin/zabby-agent/internal/wire"
)

// rateLimitCleanupInterval is how often a configured RateLimiter sheds
// source IPs it hasn't seen in a while.
const rateLimitCleanupInterval = 5 * time.Minute

// DefaultRequestTimeout bounds the time a single connection — decode,
// dispatch, encode — is allowed to take before the server closes it.
const DefaultRequestTimeout = 3 * time.Second

// Server accepts connections on a listener and serves each with a fresh
// worker. Workers are detached: canceling the context passed to Serve stops
// the accept loop but does not wait for in-flight workers to finish.
type Server struct {
	listenAddr     string
	requestTimeout time.Duration
	dispatcher     *dispatcher.Dispatcher
	log            *logrus.Logger
	metrics        *metrics.Metrics
	limiter        *security.RateLimiter

	listener net.Listener
}

// Option configures a Server at construction time.
type Option func(*Server) error

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.requestTimeout = d
		return nil
	}
}

// WithLogger overrides the default standard logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) error {
		s.log = log
		return nil
	}
}

// WithMetrics enables self-observability counters; omit to run without them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

// WithRateLimiter bounds how many connections per second a single source
// IP may open before Serve refuses it outright, protecting the agent from
// a single noisy or malicious client. Omit to accept every connection.
func WithRateLimiter(l *security.RateLimiter) Option {
	return func(s *Server) error {
		s.limiter = l
		return nil
	}
}

// New builds a Server bound to listenAddr (host:port), serving requests
// via d. The listener is not opened until Serve is called.
func New(listenAddr string, d *dispatcher.Dispatcher, opts ...Option) (*Server, error) {
	s := &Server{
		listenAddr:     listenAddr,
		requestTimeout: DefaultRequestTimeout,
		dispatcher:     d,
		log:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Serve opens the listener and runs the accept loop until ctx is
// canceled or accept fails fatally. Socket reuse is the standard
// library's default POSIX listener behavior (SO_REUSEADDR); nothing
// extra is configured here.
func (s *Server) Serve(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	if s.limiter != nil {
		go s.runLimiterCleanup(ctx)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.WithError(err).Warn("server: accept failed")
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(remoteIP(conn)) {
			s.log.WithField("remote", conn.RemoteAddr()).Warn("server: connection rate-limited")
			conn.Close()
			s.fail()
			continue
		}

		go s.handle(conn)
	}
}

func (s *Server) runLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup()
		}
	}
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// Addr returns the address the listener is bound to. Only valid after
// Serve has been called.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionsAccepted.Inc()
	}

	if err := conn.SetDeadline(time.Now().Add(s.requestTimeout)); err != nil {
		s.log.WithError(err).Warn("server: set deadline failed")
		s.fail()
		return
	}

	rawKey, err := wire.DecodeKey(conn)
	if err != nil {
		s.log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("server: decode failed")
		s.fail()
		return
	}

	value := s.dispatcher.Dispatch(rawKey)

	if err := wire.EncodeValue(conn, value); err != nil {
		s.log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("server: encode failed")
		s.fail()
		return
	}
}

func (s *Server) fail() {
	if s.metrics != nil {
		s.metrics.ConnectionsFailed.Inc()
	}
}

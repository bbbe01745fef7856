package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blin/zabby-agent/internal/dispatcher"
	"github.com/blin/zabby-agent/internal/registry"
	"github.com/blin/zabby-agent/internal/security"
	"github.com/blin/zabby-agent/internal/wire"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func startTestServer(t *testing.T) (addr string, stop func()) {
	t.Helper()

	snap, err := registry.NewSnapshot([]registry.Item{{
		Key: "agent.ping",
		Fn:  func(args []string) (interface{}, error) { return int64(1), nil },
	}})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	d := dispatcher.New(registry.New(snap), silentLogger())

	srv, err := New("127.0.0.1:0", d, WithLogger(silentLogger()), WithRequestTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		select {
		case err := <-errc:
			t.Fatalf("Serve() exited early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening in time")
		}
		time.Sleep(time.Millisecond)
	}

	return srv.Addr().String(), cancel
}

func TestServer_FramedRequestFramedResponse(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	req := make([]byte, 0)
	req = append(req, wire.Header[:]...)
	lenBuf := make([]byte, wire.LengthFieldSize)
	binary.LittleEndian.PutUint64(lenBuf, uint64(len("agent.ping")))
	req = append(req, lenBuf...)
	req = append(req, "agent.ping"...)

	if _, err := conn.Write(req); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	resp := make([]byte, wire.FrameDescriptorSize)
	if _, err := io.ReadFull(conn, resp); err != nil {
		t.Fatalf("read response header: %v", err)
	}
	n := binary.LittleEndian.Uint64(resp[wire.HeaderLength:wire.FrameDescriptorSize])
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		t.Fatalf("read response payload: %v", err)
	}
	if string(payload) != "1" {
		t.Errorf("payload = %q, want %q", payload, "1")
	}
}

func TestServer_LineRequest(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("agent.ping\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r := bufio.NewReader(conn)
	resp := make([]byte, wire.FrameDescriptorSize)
	if _, err := io.ReadFull(r, resp); err != nil {
		t.Fatalf("read response header: %v", err)
	}
	n := binary.LittleEndian.Uint64(resp[wire.HeaderLength:wire.FrameDescriptorSize])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		t.Fatalf("read response payload: %v", err)
	}
	if string(payload) != "1" {
		t.Errorf("payload = %q, want %q", payload, "1")
	}
}

func TestServer_UnknownKey_ReturnsNotSupported(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("no.such.key\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	resp := make([]byte, wire.FrameDescriptorSize)
	if _, err := io.ReadFull(conn, resp); err != nil {
		t.Fatalf("read response header: %v", err)
	}
	n := binary.LittleEndian.Uint64(resp[wire.HeaderLength:wire.FrameDescriptorSize])
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		t.Fatalf("read response payload: %v", err)
	}
	if string(payload) != wire.NotSupported {
		t.Errorf("payload = %q, want %q", payload, wire.NotSupported)
	}
}

func TestServer_RateLimiter_RefusesFloodingSource(t *testing.T) {
	snap, err := registry.NewSnapshot([]registry.Item{{
		Key: "agent.ping",
		Fn:  func(args []string) (interface{}, error) { return int64(1), nil },
	}})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	d := dispatcher.New(registry.New(snap), silentLogger())
	limiter := security.NewRateLimiter(1, time.Minute, 100)

	srv, err := New("127.0.0.1:0", d, WithLogger(silentLogger()), WithRateLimiter(limiter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening in time")
		}
		time.Sleep(time.Millisecond)
	}
	addr := srv.Addr().String()

	var lastPayload string
	for i := 0; i < 5; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		conn.Write([]byte("agent.ping\n"))

		resp := make([]byte, wire.FrameDescriptorSize)
		if _, err := io.ReadFull(conn, resp); err != nil {
			// A rate-limited connection is closed before any response is
			// written; that is the success condition this test looks for.
			conn.Close()
			return
		}
		n := binary.LittleEndian.Uint64(resp[wire.HeaderLength:wire.FrameDescriptorSize])
		payload := make([]byte, n)
		io.ReadFull(conn, payload)
		lastPayload = string(payload)
		conn.Close()
	}

	t.Fatalf("expected a later connection to be refused by the rate limiter, last payload = %q", lastPayload)
}

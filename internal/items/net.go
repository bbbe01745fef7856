package items

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/blin/zabby-agent/internal/provider"
)

var netIfaceModes = []string{"bytes", "packets", "errors", "dropped"}

func netIf(key string, host provider.HostOS, direction string) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		iface := arg(args, 0, "")
		mode := arg(args, 1, "bytes")
		if err := validateMode(key, "mode", mode, netIfaceModes...); err != nil {
			return nil, err
		}
		names, err := host.NetInterfaces()
		if err != nil {
			return nil, err
		}
		if err := validateMode(key, "interface", iface, names...); err != nil {
			return nil, err
		}
		counters, err := host.NetInterfaceCounters(iface)
		if err != nil {
			return nil, err
		}
		var value uint64
		switch {
		case direction == "in" && mode == "bytes":
			value = counters.InBytes
		case direction == "in" && mode == "packets":
			value = counters.InPackets
		case direction == "in" && mode == "errors":
			value = counters.InErrors
		case direction == "in" && mode == "dropped":
			value = counters.InDropped
		case direction == "out" && mode == "bytes":
			value = counters.OutBytes
		case direction == "out" && mode == "packets":
			value = counters.OutPackets
		case direction == "out" && mode == "errors":
			value = counters.OutErrors
		case direction == "out" && mode == "dropped":
			value = counters.OutDropped
		}
		return int64(value), nil
	}
}

var tcpServicePorts = map[string]int{
	"ssh": 22,
}

var sshGreeting = regexp.MustCompile(`^SSH-[0-9.]+-`)

func netTCPService(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		name := arg(args, 0, "ssh")
		if err := validateMode("net.tcp.service", "name", name, "ssh"); err != nil {
			return nil, err
		}
		ip := arg(args, 1, "127.0.0.1")

		defaultPort := tcpServicePorts[name]
		portArg := arg(args, 2, fmt.Sprintf("%d", defaultPort))
		port, err := parsePort("net.tcp.service", portArg)
		if err != nil {
			return nil, err
		}

		timeoutArg := arg(args, 3, "1")
		timeoutSeconds, err := parseTimeoutSeconds("net.tcp.service", timeoutArg)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(timeoutSeconds * float64(time.Second))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
		response, err := host.DialProbe(ctx, addr, "", timeout)
		if err != nil {
			// absence of the service is a legitimate outcome for this item
			return int64(0), nil
		}

		running := false
		if name == "ssh" {
			running = sshGreeting.MatchString(response)
		}
		if running {
			return int64(1), nil
		}
		return int64(0), nil
	}
}

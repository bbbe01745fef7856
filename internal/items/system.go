package items

import (
	"fmt"

	"github.com/blin/zabby-agent/internal/provider"
)

func systemHostname(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		mode := arg(args, 0, "host")
		if err := validateMode("system.hostname", "mode", mode, "host"); err != nil {
			return nil, err
		}
		return host.Hostname()
	}
}

func systemUname(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		u, err := host.Uname()
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%s %s %s %s", u.Sysname, u.Release, u.Version, u.Machine), nil
	}
}

func systemUptime(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		seconds, err := host.Uptime()
		if err != nil {
			return nil, err
		}
		return int64(seconds), nil
	}
}

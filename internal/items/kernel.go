package items

import "github.com/blin/zabby-agent/internal/provider"

func kernelMaxproc(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		n, err := host.MaxProcesses()
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	}
}

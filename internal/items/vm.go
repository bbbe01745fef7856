package items

import "github.com/blin/zabby-agent/internal/provider"

var vmMemoryModes = []string{"total", "free", "used", "pfree", "pused", "shared", "buffers", "cached", "available"}

func vmMemorySize(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		mode := arg(args, 0, "total")
		if err := validateMode("vm.memory.size", "mode", mode, vmMemoryModes...); err != nil {
			return nil, err
		}

		mem, err := host.Memory()
		if err != nil {
			return nil, err
		}

		switch mode {
		case "shared":
			return int64(mem.Shared), nil
		case "buffers":
			return int64(mem.Buffers), nil
		case "cached":
			return int64(mem.Cached), nil
		case "available":
			return int64(mem.Free + mem.Buffers + mem.Cached), nil
		default:
			return convertSize(mem.Free, mem.Total, mode), nil
		}
	}
}

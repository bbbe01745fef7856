package items

import "github.com/blin/zabby-agent/internal/provider"

// sectorsPerPage assumes the common 4096-byte page / 512-byte sector ratio;
// swap counters below this abstraction only ever come from /proc/vmstat's
// page-granularity pswpin/pswpout.
const sectorsPerPage = 8

func systemSwapSize(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		mode := arg(args, 1, "total")
		if err := validateMode("system.swap.size", "mode", mode, "free", "total", "used", "pfree", "pused"); err != nil {
			return nil, err
		}
		swap, err := host.Swap()
		if err != nil {
			return nil, err
		}
		return convertSize(swap.Free, swap.Total, mode), nil
	}
}

func swapActivity(key string, host provider.HostOS, selectIn bool) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		mode := arg(args, 1, "count")
		if err := validateMode(key, "mode", mode, "count", "pages", "sectors"); err != nil {
			return nil, err
		}
		swap, err := host.Swap()
		if err != nil {
			return nil, err
		}
		pages := swap.SwapOut
		if selectIn {
			pages = swap.SwapIn
		}
		if mode == "sectors" {
			return int64(pages * sectorsPerPage), nil
		}
		return int64(pages), nil
	}
}

package items

import (
	"github.com/blin/zabby-agent/internal/provider"
	"github.com/blin/zabby-agent/internal/sampler"
)

var windowShiftSeconds = map[string]float64{
	"avg1":  60,
	"avg5":  300,
	"avg15": 900,
}

var vfsDevStats = []string{"operations", "sectors", "ops", "sps", "bps"}
var vfsDevWindows = []string{"avg1", "avg5", "avg15"}

func vfsDev(key string, host provider.HostOS, idx *sampler.Index, read bool) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		device := arg(args, 0, "all")
		stat := arg(args, 1, "operations")
		window := arg(args, 2, "avg1")

		if err := validateMode(key, "stat", stat, vfsDevStats...); err != nil {
			return nil, err
		}
		if err := validateMode(key, "mode", window, vfsDevWindows...); err != nil {
			return nil, err
		}

		devices, err := devicesFor(key, host, device)
		if err != nil {
			return nil, err
		}

		if stat == "operations" || stat == "sectors" {
			var total uint64
			for _, d := range devices {
				counters, err := host.DiskDeviceCounters(d)
				if err != nil {
					return nil, err
				}
				total += cumulativeStat(counters, stat, read)
			}
			return int64(total), nil
		}

		return diskRate(idx, devices, stat, window, read)
	}
}

func devicesFor(key string, host provider.HostOS, device string) ([]string, error) {
	names, err := host.DiskDevices()
	if err != nil {
		return nil, err
	}
	if device == "all" {
		return names, nil
	}
	if err := validateMode(key, "device", device, names...); err != nil {
		return nil, err
	}
	return []string{device}, nil
}

func cumulativeStat(c provider.DiskDeviceCounters, stat string, read bool) uint64 {
	if stat == "sectors" {
		if read {
			return c.ReadSectors
		}
		return c.WriteSectors
	}
	if read {
		return c.ReadOps
	}
	return c.WriteOps
}

func diskRate(idx *sampler.Index, devices []string, stat, window string, read bool) (interface{}, error) {
	shiftSeconds := windowShiftSeconds[window]
	now := sampler.Now()

	var currentTotal, shiftedTotal uint64
	var oldestShiftTimestamp float64
	haveAny := false

	for _, device := range devices {
		current, ok := idx.GetAtOffset(device, 0)
		if !ok {
			continue
		}
		currentCounters, ok := current.Payload.(provider.DiskDeviceCounters)
		if !ok {
			continue
		}

		shifted, ok := idx.GetShifted(device, shiftSeconds, now)
		if !ok {
			continue
		}
		shiftedCounters, ok := shifted.Payload.(provider.DiskDeviceCounters)
		if !ok {
			continue
		}

		haveAny = true
		currentTotal += rawStatValue(currentCounters, stat, read)
		shiftedTotal += rawStatValue(shiftedCounters, stat, read)
		if oldestShiftTimestamp == 0 || shifted.Timestamp < oldestShiftTimestamp {
			oldestShiftTimestamp = shifted.Timestamp
		}
	}

	if !haveAny {
		return float64(0), nil
	}

	elapsed := now - oldestShiftTimestamp
	if elapsed <= 0 {
		return float64(0), nil
	}

	delta := float64(currentTotal - shiftedTotal)
	switch stat {
	case "ops":
		return delta / elapsed, nil
	case "sps":
		return delta / elapsed, nil
	case "bps":
		return (delta * 512) / elapsed, nil
	}
	return float64(0), nil
}

func rawStatValue(c provider.DiskDeviceCounters, stat string, read bool) uint64 {
	switch stat {
	case "sps", "bps":
		if read {
			return c.ReadSectors
		}
		return c.WriteSectors
	default: // "ops"
		if read {
			return c.ReadOps
		}
		return c.WriteOps
	}
}

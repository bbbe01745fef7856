package items

import (
	"strconv"

	"github.com/blin/zabby-agent/internal/errors"
	"github.com/blin/zabby-agent/internal/provider"
	"github.com/blin/zabby-agent/internal/sampler"
)

var cpuStates = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq"}

func systemCPUUtil(host provider.HostOS, idx *sampler.Index) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		cpuArg := arg(args, 0, "all")
		state := arg(args, 1, "user")
		window := arg(args, 2, "avg1")

		if err := validateMode("system.cpu.util", "state", state, cpuStates...); err != nil {
			return nil, err
		}
		if err := validateMode("system.cpu.util", "mode", window, vfsDevWindows...); err != nil {
			return nil, err
		}

		count, err := host.CPUCount()
		if err != nil {
			return nil, err
		}

		var cpus []int
		if cpuArg == "all" {
			for i := 0; i < count; i++ {
				cpus = append(cpus, i)
			}
		} else {
			n, err := strconv.Atoi(cpuArg)
			if err != nil || n < 0 || n >= count {
				return nil, &errors.WrongArgumentError{
					Key: "system.cpu.util", Field: "cpu", Value: cpuArg,
					Message: "unknown cpu id",
				}
			}
			cpus = []int{n}
		}

		shiftSeconds := windowShiftSeconds[window]
		now := sampler.Now()

		var stateDelta, totalDelta float64
		for _, cpu := range cpus {
			subject := sampler.CPUSubject(cpu)
			current, ok := idx.GetAtOffset(subject, 0)
			if !ok {
				continue
			}
			currentTimes, ok := current.Payload.(provider.CPUTimes)
			if !ok {
				continue
			}
			shifted, ok := idx.GetShifted(subject, shiftSeconds, now)
			if !ok {
				continue
			}
			shiftedTimes, ok := shifted.Payload.(provider.CPUTimes)
			if !ok {
				continue
			}

			stateDelta += float64(stateValue(currentTimes, state) - stateValue(shiftedTimes, state))
			totalDelta += float64(sumTimes(currentTimes) - sumTimes(shiftedTimes))
		}

		if totalDelta == 0 {
			return 0.0, nil
		}
		return (stateDelta * 100) / totalDelta, nil
	}
}

func stateValue(t provider.CPUTimes, state string) uint64 {
	switch state {
	case "user":
		return t.User
	case "nice":
		return t.Nice
	case "system":
		return t.System
	case "idle":
		return t.Idle
	case "iowait":
		return t.IOWait
	case "irq":
		return t.IRQ
	case "softirq":
		return t.SoftIRQ
	}
	return 0
}

func sumTimes(t provider.CPUTimes) uint64 {
	return t.User + t.Nice + t.System + t.Idle + t.IOWait + t.IRQ + t.SoftIRQ
}

func systemCPULoad(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		cpuArg := arg(args, 0, "all")
		window := arg(args, 1, "avg1")

		if err := validateMode("system.cpu.load", "cpu", cpuArg, "all", "percpu"); err != nil {
			return nil, err
		}
		if err := validateMode("system.cpu.load", "mode", window, vfsDevWindows...); err != nil {
			return nil, err
		}

		one, five, fifteen, err := host.LoadAverage()
		if err != nil {
			return nil, err
		}

		var value float64
		switch window {
		case "avg1":
			value = one
		case "avg5":
			value = five
		case "avg15":
			value = fifteen
		}

		if cpuArg == "percpu" {
			count, err := host.CPUCount()
			if err != nil {
				return nil, err
			}
			if count > 0 {
				value /= float64(count)
			}
		}
		return value, nil
	}
}

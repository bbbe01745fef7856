// Package provider declares the host-OS capabilities item functions
// consume. Item functions never read /proc, call statvfs, or spawn a
// shell directly; they go through this interface so that a fake can
// stand in for tests.
package provider

import (
	"context"
	"time"
)

// FSStat is the result of a filesystem size/inode query.
type FSStat struct {
	Total uint64
	Free  uint64
	Used  uint64
}

// NetIfaceCounters is one network interface's cumulative counters.
type NetIfaceCounters struct {
	InBytes    uint64
	InPackets  uint64
	InErrors   uint64
	InDropped  uint64
	OutBytes   uint64
	OutPackets uint64
	OutErrors  uint64
	OutDropped uint64
}

// ProcessInfo is a snapshot of one running process.
type ProcessInfo struct {
	PID     int
	Name    string
	UID     int
	State   string
	Cmdline string
	VSize   uint64
}

// MemoryStat is the host's memory map.
type MemoryStat struct {
	Total   uint64
	Free    uint64
	Used    uint64
	Buffers uint64
	Cached  uint64
	Shared  uint64
}

// DiskDeviceCounters is one disk device's cumulative I/O counters.
type DiskDeviceCounters struct {
	ReadOps      uint64
	ReadSectors  uint64
	WriteOps     uint64
	WriteSectors uint64
}

// CPUTimes is one CPU's cumulative time buckets, in USER_HZ ticks.
type CPUTimes struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
}

// SwapCounters is the host's swap usage and activity.
type SwapCounters struct {
	Total  uint64
	Free   uint64
	Used   uint64
	SwapIn uint64 // pages swapped in, cumulative
	SwapOut uint64 // pages swapped out, cumulative
}

// UnameInfo mirrors the fields of POSIX uname(2).
type UnameInfo struct {
	Sysname string
	Nodename string
	Release string
	Version string
	Machine string
}

// HostOS is the union of host-OS queries item functions depend on. A
// concrete implementation lives per supported OS (see package hostos for
// Linux); items hold a HostOS, never an OS-specific type.
type HostOS interface {
	// FSSize returns size counters for the filesystem mounted at path.
	FSSize(path string) (FSStat, error)

	// FSInodes returns inode counters for the filesystem mounted at path.
	FSInodes(path string) (FSStat, error)

	// NetInterfaces lists the names of the host's network interfaces.
	NetInterfaces() ([]string, error)

	// NetInterfaceCounters returns cumulative counters for one interface.
	NetInterfaceCounters(iface string) (NetIfaceCounters, error)

	// Processes lists snapshots of every visible process.
	Processes() ([]ProcessInfo, error)

	// UIDForUsername resolves a username to a uid.
	UIDForUsername(username string) (int, error)

	// Memory returns the host's memory map.
	Memory() (MemoryStat, error)

	// DiskDevices lists the names of the host's block devices.
	DiskDevices() ([]string, error)

	// DiskDeviceCounters returns cumulative I/O counters for one device.
	DiskDeviceCounters(device string) (DiskDeviceCounters, error)

	// CPUCount returns the number of CPUs the host reports.
	CPUCount() (int, error)

	// CPUTimes returns the cumulative time buckets for one CPU id.
	CPUTimes(cpu int) (CPUTimes, error)

	// Hostname returns the host's configured hostname.
	Hostname() (string, error)

	// Uname returns the host's uname(2) tuple.
	Uname() (UnameInfo, error)

	// Uptime returns seconds since boot.
	Uptime() (float64, error)

	// MaxProcesses returns the host's configured process count ceiling.
	MaxProcesses() (int, error)

	// LoadAverage returns the 1/5/15-minute load averages.
	LoadAverage() (one, five, fifteen float64, err error)

	// Swap returns the host's swap usage and cumulative activity counters.
	Swap() (SwapCounters, error)

	// RunShell executes command with a bounded timeout, returning stdout and
	// stderr combined. A timed-out or failed command surfaces a HostOSError.
	RunShell(ctx context.Context, command string, timeout time.Duration) (string, error)

	// DialProbe opens a TCP connection to addr, writes request if
	// non-empty, and reads one response line within timeout.
	DialProbe(ctx context.Context, addr string, request string, timeout time.Duration) (string, error)
}

// Package hostos implements provider.HostOS for Linux by reading /proc,
// calling statfs(2), and shelling out for probes the kernel doesn't expose
// directly.
package hostos

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/blin/zabby-agent/internal/errors"
	"github.com/blin/zabby-agent/internal/provider"
)

// processStateMap mirrors /proc/[pid]/status's single-letter state code to
// the three buckets proc.num filters on.
var processStateMap = map[byte]string{
	'R': "run",
	'S': "sleep",
	'D': "sleep",
	'Z': "zomb",
	'T': "sleep",
}

// Linux is the concrete provider.HostOS for Linux hosts.
type Linux struct {
	ProcRoot string // defaults to /proc; overridable in tests
}

// New returns a Linux host-OS adapter rooted at the real /proc.
func New() *Linux {
	return &Linux{ProcRoot: "/proc"}
}

func (l *Linux) proc(parts ...string) string {
	root := l.ProcRoot
	if root == "" {
		root = "/proc"
	}
	return root + "/" + strings.Join(parts, "/")
}

func (l *Linux) FSSize(path string) (provider.FSStat, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return provider.FSStat{}, &errors.HostOSError{Operation: "statfs " + path, Err: err}
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	return provider.FSStat{Total: total, Free: free, Used: total - (st.Bfree * bsize)}, nil
}

func (l *Linux) FSInodes(path string) (provider.FSStat, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return provider.FSStat{}, &errors.HostOSError{Operation: "statfs " + path, Err: err}
	}
	return provider.FSStat{Total: st.Files, Free: st.Ffree, Used: st.Files - st.Ffree}, nil
}

func (l *Linux) netDevLines() (map[string][]uint64, error) {
	path := l.proc("net", "dev")
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	defer f.Close()

	result := make(map[string][]uint64)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= 2 {
			continue // header lines
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 17 {
			continue
		}
		name := strings.TrimSuffix(fields[0], ":")
		values := make([]uint64, 0, 16)
		for _, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, &errors.HostOSError{Operation: "parse " + path, Err: err}
			}
			values = append(values, v)
		}
		result[name] = values
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	return result, nil
}

func (l *Linux) NetInterfaces() ([]string, error) {
	lines, err := l.netDevLines()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(lines))
	for name := range lines {
		names = append(names, name)
	}
	return names, nil
}

// NetInterfaceCounters reads /proc/net/dev's 16 numeric columns:
// [0:4) receive bytes/packets/errs/drop, [8:12) transmit bytes/packets/errs/drop.
func (l *Linux) NetInterfaceCounters(iface string) (provider.NetIfaceCounters, error) {
	lines, err := l.netDevLines()
	if err != nil {
		return provider.NetIfaceCounters{}, err
	}
	fields, ok := lines[iface]
	if !ok || len(fields) < 16 {
		return provider.NetIfaceCounters{}, &errors.HostOSError{
			Operation: "net interface " + iface,
			Err:       fmt.Errorf("unknown interface"),
		}
	}
	return provider.NetIfaceCounters{
		InBytes:    fields[0],
		InPackets:  fields[1],
		InErrors:   fields[2],
		InDropped:  fields[3],
		OutBytes:   fields[8],
		OutPackets: fields[9],
		OutErrors:  fields[10],
		OutDropped: fields[11],
	}, nil
}

func (l *Linux) Processes() ([]provider.ProcessInfo, error) {
	root := l.ProcRoot
	if root == "" {
		root = "/proc"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "read " + root, Err: err}
	}

	var infos []provider.ProcessInfo
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		info, err := l.processInfo(pid)
		if err != nil {
			continue // process exited or is a kernel thread without a cmdline
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (l *Linux) processInfo(pid int) (provider.ProcessInfo, error) {
	cmdlinePath := l.proc(strconv.Itoa(pid), "cmdline")
	raw, err := os.ReadFile(cmdlinePath)
	if err != nil || len(raw) == 0 {
		return provider.ProcessInfo{}, fmt.Errorf("no cmdline for pid %d", pid)
	}
	cmdline := strings.TrimRight(strings.ReplaceAll(string(raw), "\x00", " "), " ")

	statusPath := l.proc(strconv.Itoa(pid), "status")
	f, err := os.Open(statusPath)
	if err != nil {
		return provider.ProcessInfo{}, err
	}
	defer f.Close()

	info := provider.ProcessInfo{PID: pid, Cmdline: cmdline, State: "sleep"}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			info.Name = value
		case "Uid":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				uid, _ := strconv.Atoi(fields[0])
				info.UID = uid
			}
		case "State":
			if len(value) > 0 {
				if mapped, ok := processStateMap[value[0]]; ok {
					info.State = mapped
				}
			}
		case "VmSize":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				kb, _ := strconv.ParseUint(fields[0], 10, 64)
				info.VSize = kb * 1024
			}
		}
	}
	return info, nil
}

func (l *Linux) UIDForUsername(username string) (int, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, &errors.HostOSError{Operation: "lookup user " + username, Err: err}
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, &errors.HostOSError{Operation: "parse uid for " + username, Err: err}
	}
	return uid, nil
}

func (l *Linux) Memory() (provider.MemoryStat, error) {
	path := l.proc("meminfo")
	values, err := kbFieldsFromFile(path)
	if err != nil {
		return provider.MemoryStat{}, err
	}
	total := values["MemTotal"]
	free := values["MemFree"]
	buffers := values["Buffers"]
	cached := values["Cached"]
	shared := values["Shmem"]
	return provider.MemoryStat{
		Total:   total,
		Free:    free,
		Used:    total - free,
		Buffers: buffers,
		Cached:  cached,
		Shared:  shared,
	}, nil
}

// kbFieldsFromFile parses a /proc/meminfo-style file: "Key:   123 kB" lines,
// returned in bytes.
func kbFieldsFromFile(path string) (map[string]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	defer f.Close()

	values := make(map[string]uint64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		values[key] = n * 1024
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	return values, nil
}

func (l *Linux) DiskDevices() ([]string, error) {
	stats, err := l.diskStats()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	return names, nil
}

func (l *Linux) diskStats() (map[string]provider.DiskDeviceCounters, error) {
	path := l.proc("diskstats")
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	defer f.Close()

	result := make(map[string]provider.DiskDeviceCounters)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 14 {
			continue
		}
		name := fields[2]
		readOps, _ := strconv.ParseUint(fields[3], 10, 64)
		readSectors, _ := strconv.ParseUint(fields[5], 10, 64)
		writeOps, _ := strconv.ParseUint(fields[7], 10, 64)
		writeSectors, _ := strconv.ParseUint(fields[9], 10, 64)
		result[name] = provider.DiskDeviceCounters{
			ReadOps:      readOps,
			ReadSectors:  readSectors,
			WriteOps:     writeOps,
			WriteSectors: writeSectors,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	return result, nil
}

func (l *Linux) DiskDeviceCounters(device string) (provider.DiskDeviceCounters, error) {
	stats, err := l.diskStats()
	if err != nil {
		return provider.DiskDeviceCounters{}, err
	}
	counters, ok := stats[device]
	if !ok {
		return provider.DiskDeviceCounters{}, &errors.HostOSError{
			Operation: "disk device " + device,
			Err:       fmt.Errorf("unknown device"),
		}
	}
	return counters, nil
}

func (l *Linux) cpuStatLines() (map[string][]uint64, error) {
	path := l.proc("stat")
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	defer f.Close()

	result := make(map[string][]uint64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		if fields[0] == "cpu" {
			continue // skip the aggregate line, callers address cpu0..N
		}
		values := make([]uint64, 0, 7)
		for _, raw := range fields[1:8] {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, &errors.HostOSError{Operation: "parse " + path, Err: err}
			}
			values = append(values, v)
		}
		result[fields[0]] = values
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	return result, nil
}

func (l *Linux) CPUCount() (int, error) {
	lines, err := l.cpuStatLines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (l *Linux) CPUTimes(cpu int) (provider.CPUTimes, error) {
	lines, err := l.cpuStatLines()
	if err != nil {
		return provider.CPUTimes{}, err
	}
	key := "cpu" + strconv.Itoa(cpu)
	fields, ok := lines[key]
	if !ok || len(fields) < 7 {
		return provider.CPUTimes{}, &errors.HostOSError{
			Operation: "cpu " + key,
			Err:       fmt.Errorf("unknown cpu id"),
		}
	}
	return provider.CPUTimes{
		User:    fields[0],
		Nice:    fields[1],
		System:  fields[2],
		Idle:    fields[3],
		IOWait:  fields[4],
		IRQ:     fields[5],
		SoftIRQ: fields[6],
	}, nil
}

func (l *Linux) Hostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", &errors.HostOSError{Operation: "hostname", Err: err}
	}
	return name, nil
}

func (l *Linux) Uname() (provider.UnameInfo, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return provider.UnameInfo{}, &errors.HostOSError{Operation: "uname", Err: err}
	}
	return provider.UnameInfo{
		Sysname:  cstr(u.Sysname[:]),
		Nodename: cstr(u.Nodename[:]),
		Release:  cstr(u.Release[:]),
		Version:  cstr(u.Version[:]),
		Machine:  cstr(u.Machine[:]),
	}, nil
}

func cstr(b []byte) string {
	n := strings.IndexByte(string(b), 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

func (l *Linux) Uptime() (float64, error) {
	path := l.proc("uptime")
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 1 {
		return 0, &errors.HostOSError{Operation: "parse " + path, Err: fmt.Errorf("empty uptime")}
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, &errors.HostOSError{Operation: "parse " + path, Err: err}
	}
	return seconds, nil
}

func (l *Linux) MaxProcesses() (int, error) {
	path := l.proc("sys", "kernel", "pid_max")
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, &errors.HostOSError{Operation: "parse " + path, Err: err}
	}
	return n, nil
}

func (l *Linux) LoadAverage() (one, five, fifteen float64, err error) {
	path := l.proc("loadavg")
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return 0, 0, 0, &errors.HostOSError{Operation: "read " + path, Err: readErr}
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 3 {
		return 0, 0, 0, &errors.HostOSError{Operation: "parse " + path, Err: fmt.Errorf("short loadavg line")}
	}
	one, err1 := strconv.ParseFloat(fields[0], 64)
	five, err2 := strconv.ParseFloat(fields[1], 64)
	fifteen, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, &errors.HostOSError{Operation: "parse " + path, Err: fmt.Errorf("malformed loadavg fields")}
	}
	return one, five, fifteen, nil
}

func (l *Linux) Swap() (provider.SwapCounters, error) {
	mem, err := kbFieldsFromFile(l.proc("meminfo"))
	if err != nil {
		return provider.SwapCounters{}, err
	}
	total := mem["SwapTotal"]
	free := mem["SwapFree"]

	vmstatPath := l.proc("vmstat")
	f, err := os.Open(vmstatPath)
	if err != nil {
		return provider.SwapCounters{}, &errors.HostOSError{Operation: "read " + vmstatPath, Err: err}
	}
	defer f.Close()

	var swapIn, swapOut uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		switch fields[0] {
		case "pswpin":
			swapIn, _ = strconv.ParseUint(fields[1], 10, 64)
		case "pswpout":
			swapOut, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	return provider.SwapCounters{
		Total:   total,
		Free:    free,
		Used:    total - free,
		SwapIn:  swapIn,
		SwapOut: swapOut,
	}, nil
}

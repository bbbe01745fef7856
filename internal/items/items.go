package items

import (
	"github.com/blin/zabby-agent/internal/provider"
	"github.com/blin/zabby-agent/internal/registry"
	"github.com/blin/zabby-agent/internal/sampler"
)

// Build returns the bundled item set, bound to host and the two sampler
// indexes the rate-based items (vfs.dev.*, system.cpu.util) read from.
func Build(host provider.HostOS, diskIdx, cpuIdx *sampler.Index) []registry.Item {
	return []registry.Item{
		{Key: "agent.ping", Fn: agentPing},
		{Key: "agent.version", Fn: agentVersion},

		{Key: "vfs.fs.size", Fn: vfsFSSize(host)},
		{Key: "vfs.fs.inode", Fn: vfsFSInode(host)},

		{Key: "net.if.in", Fn: netIf("net.if.in", host, "in")},
		{Key: "net.if.out", Fn: netIf("net.if.out", host, "out")},
		{Key: "net.tcp.service", Fn: netTCPService(host)},

		{Key: "proc.num", Fn: procNum(host)},

		{Key: "vm.memory.size", Fn: vmMemorySize(host)},

		{Key: "vfs.dev.read", Fn: vfsDev("vfs.dev.read", host, diskIdx, true)},
		{Key: "vfs.dev.write", Fn: vfsDev("vfs.dev.write", host, diskIdx, false)},

		{Key: "system.cpu.util", Fn: systemCPUUtil(host, cpuIdx)},
		{Key: "system.cpu.load", Fn: systemCPULoad(host)},
		{Key: "system.hostname", Fn: systemHostname(host)},
		{Key: "system.uname", Fn: systemUname(host)},
		{Key: "system.uptime", Fn: systemUptime(host)},
		{Key: "system.swap.size", Fn: systemSwapSize(host)},
		{Key: "system.swap.in", Fn: swapActivity("system.swap.in", host, true)},
		{Key: "system.swap.out", Fn: swapActivity("system.swap.out", host, false)},

		{Key: "kernel.maxproc", Fn: kernelMaxproc(host)},

		{Key: "vfs.file.md5sum", Fn: vfsFileMD5Sum},
	}
}

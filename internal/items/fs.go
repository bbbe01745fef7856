package items

import "github.com/blin/zabby-agent/internal/provider"

func vfsFSSize(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		fs := arg(args, 0, "")
		mode := arg(args, 1, "free")
		if err := validateMode("vfs.fs.size", "mode", mode, "free", "total", "used", "pfree", "pused"); err != nil {
			return nil, err
		}
		stat, err := host.FSSize(fs)
		if err != nil {
			return nil, err
		}
		return convertSize(stat.Free, stat.Total, mode), nil
	}
}

func vfsFSInode(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		fs := arg(args, 0, "")
		mode := arg(args, 1, "free")
		if err := validateMode("vfs.fs.inode", "mode", mode, "free", "total", "used", "pfree", "pused"); err != nil {
			return nil, err
		}
		stat, err := host.FSInodes(fs)
		if err != nil {
			return nil, err
		}
		return convertSize(stat.Free, stat.Total, mode), nil
	}
}

package items

import (
	"regexp"

	"github.com/blin/zabby-agent/internal/provider"
)

func procNum(host provider.HostOS) func([]string) (interface{}, error) {
	return func(args []string) (interface{}, error) {
		name := arg(args, 0, "")
		user := arg(args, 1, "")
		state := arg(args, 2, "all")
		cmdlinePattern := arg(args, 3, "")

		if err := validateMode("proc.num", "state", state, "all", "run", "sleep", "zomb"); err != nil {
			return nil, err
		}

		var uid int
		haveUID := false
		if user != "" {
			resolved, err := host.UIDForUsername(user)
			if err != nil {
				return nil, err
			}
			uid = resolved
			haveUID = true
		}

		var cmdlineRE *regexp.Regexp
		if cmdlinePattern != "" {
			re, err := regexp.Compile(cmdlinePattern)
			if err != nil {
				return nil, err
			}
			cmdlineRE = re
		}

		processes, err := host.Processes()
		if err != nil {
			return nil, err
		}

		var count int64
		for _, p := range processes {
			if name != "" && p.Name != name {
				continue
			}
			if haveUID && p.UID != uid {
				continue
			}
			if state != "all" && p.State != state {
				continue
			}
			if cmdlineRE != nil && !cmdlineRE.MatchString(p.Cmdline) {
				continue
			}
			count++
		}
		return count, nil
	}
}

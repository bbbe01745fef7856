// Package items implements the bundled ZBXD item key surface: one function
// per key, each validating its own arguments against a declared mode set
// before calling into provider.HostOS or a sampler index.
package items

import (
	"strconv"
	"strings"

	"github.com/blin/zabby-agent/internal/errors"
)

// arg returns args[i] if present and non-empty, otherwise def.
func arg(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

// argCount is how many positional arguments were actually supplied.
func argCount(args []string) int {
	return len(args)
}

func validateMode(key, field, mode string, allowed ...string) error {
	for _, a := range allowed {
		if mode == a {
			return nil
		}
	}
	return &errors.WrongArgumentError{
		Key:     key,
		Field:   field,
		Value:   mode,
		Message: "unknown mode, should be one of " + strings.Join(allowed, ","),
	}
}

// convertSize applies the free/total/used/pfree/pused conversion every
// size-valued item (fs, swap, memory) shares.
func convertSize(free, total uint64, mode string) interface{} {
	if total == 0 {
		return int64(0)
	}
	switch mode {
	case "free":
		return int64(free)
	case "total":
		return int64(total)
	case "used":
		return int64(total - free)
	case "pfree":
		return (float64(free) / float64(total)) * 100
	case "pused":
		used := total - free
		return (float64(used) / float64(total)) * 100
	}
	return int64(0)
}

func parsePort(key, raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 0 || port > 65535 {
		return 0, &errors.WrongArgumentError{
			Key:     key,
			Field:   "port",
			Value:   raw,
			Message: "port must be an integer in range [0,65535]",
		}
	}
	return port, nil
}

func parseTimeoutSeconds(key, raw string) (float64, error) {
	timeout, err := strconv.ParseFloat(raw, 64)
	if err != nil || timeout < 0 {
		return 0, &errors.WrongArgumentError{
			Key:     key,
			Field:   "timeout",
			Value:   raw,
			Message: "timeout must be a non-negative float",
		}
	}
	return timeout, nil
}

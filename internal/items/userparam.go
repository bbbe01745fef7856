package items

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blin/zabby-agent/internal/errors"
	"github.com/blin/zabby-agent/internal/provider"
	"github.com/blin/zabby-agent/internal/registry"
)

// DefaultShellTimeout bounds a UserParameter shell command's run time.
const DefaultShellTimeout = 3 * time.Second

// UserParamDef is one parsed "UserParameter=key,command" line.
type UserParamDef struct {
	Key        string
	Command    string
	HasArgs    bool
	SourceFile string
	SourceLine int
}

var positionalArg = regexp.MustCompile(`\$(\d)`)

// ParseUserParameterFile reads an item-definition file of
// "UserParameter=key,command" lines (blank lines and lines starting with
// "#" are skipped) matching Zabbix's UserParameter format. A key ending
// in "[*]" takes positional arguments substituted into command as
// "$1".."$9"; its "[*]" suffix is stripped from the registered key.
func ParseUserParameterFile(path string) ([]UserParamDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.ConfigError{Field: "ItemFiles", Value: path, Message: "failed to open item file", Err: err}
	}
	defer f.Close()

	var defs []UserParamDef
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "UserParameter=") {
			return nil, &errors.ConfigError{Field: "ItemFiles", Value: path, Message: fmt.Sprintf("line %d: expected \"UserParameter=key,command\"", lineNo)}
		}

		body := strings.TrimPrefix(line, "UserParameter=")
		comma := strings.IndexByte(body, ',')
		if comma < 0 {
			return nil, &errors.ConfigError{Field: "ItemFiles", Value: path, Message: fmt.Sprintf("line %d: missing comma separating key from command", lineNo)}
		}

		key := body[:comma]
		command := strings.TrimSpace(body[comma+1:])

		hasArgs := strings.HasSuffix(key, "[*]")
		if hasArgs {
			key = strings.TrimSuffix(key, "[*]")
		}

		defs = append(defs, UserParamDef{Key: key, Command: command, HasArgs: hasArgs, SourceFile: path, SourceLine: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.ConfigError{Field: "ItemFiles", Value: path, Message: "failed to read item file", Err: err}
	}
	return defs, nil
}

// BuildUserParameterItems turns parsed definitions into dispatchable
// registry.Items, each running its command through host.RunShell with a
// bounded timeout on every dispatch.
func BuildUserParameterItems(host provider.HostOS, defs []UserParamDef, timeout time.Duration) []registry.Item {
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}

	items := make([]registry.Item, 0, len(defs))
	for _, def := range defs {
		def := def
		items = append(items, registry.Item{
			Key: def.Key,
			Fn: func(args []string) (interface{}, error) {
				command := substituteArgs(def.Command, args, def.HasArgs)
				out, err := host.RunShell(context.Background(), command, timeout)
				if err != nil {
					return nil, err
				}
				return parseShellResult(strings.TrimRight(out, "\n")), nil
			},
		})
	}
	return items
}

// substituteArgs replaces "$1".."$9" in command with the dispatched
// argument at that 1-based position, per Zabbix's UserParameter[*]
// convention; a reference past the argument count expands to "".
func substituteArgs(command string, args []string, hasArgs bool) string {
	if !hasArgs {
		return command
	}
	return positionalArg.ReplaceAllStringFunc(command, func(m string) string {
		idx, _ := strconv.Atoi(m[1:])
		if idx-1 < 0 || idx-1 >= len(args) {
			return ""
		}
		return args[idx-1]
	})
}

// parseShellResult coerces command output to int64, then float64, falling
// back to the raw string: a shell command's stdout is text, but most
// UserParameter scripts emit a bare number.
func parseShellResult(out string) interface{} {
	if i, err := strconv.ParseInt(out, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(out, 64); err == nil {
		return f
	}
	return out
}

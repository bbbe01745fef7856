package daemon

import "syscall"

// sysProcAttrDetached starts the re-exec'd child in a new session so it
// survives the parent's exit and is not tied to a controlling terminal.
func sysProcAttrDetached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

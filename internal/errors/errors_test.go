package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ConfigError
		wantAll []string
	}{
		{
			name: "with underlying error",
			err: &ConfigError{
				Field:   "ItemFiles",
				Message: "cannot read item file",
				Err:     fmt.Errorf("no such file or directory"),
			},
			wantAll: []string{"config error", "ItemFiles", "cannot read item file", "no such file or directory"},
		},
		{
			name: "with value",
			err: &ConfigError{
				Field:   "ListenPort",
				Value:   99999,
				Message: "port out of range",
			},
			wantAll: []string{"config error", "ListenPort", "port out of range", "99999"},
		},
		{
			name: "without value or err",
			err: &ConfigError{
				Field:   "ListenHost",
				Message: "required field missing",
			},
			wantAll: []string{"config error", "ListenHost", "required field missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, want := range tt.wantAll {
				if !strings.Contains(got, want) {
					t.Errorf("ConfigError.Error() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := &ConfigError{Field: "ItemFiles", Message: "cannot read", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is(ConfigError, underlying) = false, want true")
	}
}

func TestProtocolError_Error(t *testing.T) {
	err := &ProtocolError{
		Operation: "read length header",
		Message:   "truncated stream",
		Err:       fmt.Errorf("EOF"),
	}
	got := err.Error()
	for _, want := range []string{"protocol error", "read length header", "truncated stream", "EOF"} {
		if !strings.Contains(got, want) {
			t.Errorf("ProtocolError.Error() = %q, missing %q", got, want)
		}
	}
}

func TestWrongArgumentError_Error(t *testing.T) {
	err := &WrongArgumentError{
		Key:     "vfs.fs.size",
		Field:   "mode",
		Value:   "bogus",
		Message: `unknown mode "bogus"`,
	}
	got := err.Error()
	for _, want := range []string{"vfs.fs.size", "mode", "bogus"} {
		if !strings.Contains(got, want) {
			t.Errorf("WrongArgumentError.Error() = %q, missing %q", got, want)
		}
	}
}

func TestHostOSError_Error(t *testing.T) {
	underlying := fmt.Errorf("no such file or directory")
	err := &HostOSError{Operation: "read /proc/meminfo", Err: underlying}

	got := err.Error()
	if !strings.Contains(got, "read /proc/meminfo") || !strings.Contains(got, "no such file or directory") {
		t.Errorf("HostOSError.Error() = %q, missing expected context", got)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is(HostOSError, underlying) = false, want true")
	}
}

func TestErrors_AsInterface(t *testing.T) {
	var cfgErr error = &ConfigError{Field: "x", Message: "y"}
	var target *ConfigError
	if !errors.As(cfgErr, &target) {
		t.Error("errors.As(error, *ConfigError) = false, want true")
	}

	var wrongArgErr error = &WrongArgumentError{Field: "x", Message: "y"}
	var waTarget *WrongArgumentError
	if !errors.As(wrongArgErr, &waTarget) {
		t.Error("errors.As(error, *WrongArgumentError) = false, want true")
	}
}

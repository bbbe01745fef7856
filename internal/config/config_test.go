package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blin/zabby-agent/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "zabby-agent.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
[Agent]
ListenHost = 0.0.0.0
ListenPort = 10050
LoggingConf = /etc/zabby-agent/logging.conf
ReloadOnChange = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.ListenHost != "0.0.0.0" || cfg.Agent.ListenPort != 10050 {
		t.Errorf("cfg.Agent = %+v", cfg.Agent)
	}
	if !cfg.Agent.ReloadOnChange {
		t.Error("expected ReloadOnChange to be true")
	}
}

func TestLoad_MissingListenPort(t *testing.T) {
	path := writeConfig(t, `
[Agent]
ListenHost = 0.0.0.0
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for missing ListenPort")
	}
	if _, ok := err.(*errors.ConfigError); !ok {
		t.Errorf("error = %T, want *errors.ConfigError", err)
	}
}

func TestLoad_OutOfRangePort(t *testing.T) {
	path := writeConfig(t, `
[Agent]
ListenHost = 0.0.0.0
ListenPort = 99999
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for out-of-range ListenPort")
	}
}

func TestLoad_UnreadableItemFile(t *testing.T) {
	path := writeConfig(t, `
[Agent]
ListenHost = 0.0.0.0
ListenPort = 10050
ItemFiles = /no/such/item/file.conf
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for an unreadable item file")
	}
}

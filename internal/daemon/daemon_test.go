package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquirePidFile_WritesPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zabby-agent.pid")

	pf, err := AcquirePidFile(path)
	if err != nil {
		t.Fatalf("AcquirePidFile() error = %v", err)
	}
	defer pf.Release()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected a non-empty pid-file")
	}
}

func TestAcquirePidFile_RefusesSecondLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zabby-agent.pid")

	first, err := AcquirePidFile(path)
	if err != nil {
		t.Fatalf("AcquirePidFile() error = %v", err)
	}
	defer first.Release()

	if _, err := AcquirePidFile(path); err == nil {
		t.Error("expected a second lock attempt to fail")
	}
}

func TestPidFile_ReleaseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zabby-agent.pid")

	pf, err := AcquirePidFile(path)
	if err != nil {
		t.Fatalf("AcquirePidFile() error = %v", err)
	}
	if err := pf.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected pid-file to be removed after Release")
	}
}

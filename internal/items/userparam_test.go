package items

import (
	"path/filepath"
	"testing"
)

func TestParseUserParameterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standard.conf")
	if err := writeTestFile(path, "# comment\n\nUserParameter=my.echo,echo 1\nUserParameter=my.echo.args[*],echo $1 $2\n"); err != nil {
		t.Fatalf("writeTestFile() error = %v", err)
	}

	defs, err := ParseUserParameterFile(path)
	if err != nil {
		t.Fatalf("ParseUserParameterFile() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Key != "my.echo" || defs[0].HasArgs {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if defs[1].Key != "my.echo.args" || !defs[1].HasArgs {
		t.Errorf("defs[1] = %+v", defs[1])
	}
}

func TestParseUserParameterFile_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := writeTestFile(path, "not a user parameter line\n"); err != nil {
		t.Fatalf("writeTestFile() error = %v", err)
	}

	if _, err := ParseUserParameterFile(path); err == nil {
		t.Error("expected an error for a malformed line")
	}
}

func TestBuildUserParameterItems_SubstitutesPositionalArgs(t *testing.T) {
	host := &fakeHostOS{shellOutput: "42"}
	defs := []UserParamDef{{Key: "my.echo.args", Command: "echo $1 $2", HasArgs: true}}

	items := BuildUserParameterItems(host, defs, 0)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}

	value, err := items[0].Fn([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Fn() error = %v", err)
	}
	if value != int64(42) {
		t.Errorf("value = %v, want int64(42)", value)
	}
	if len(host.shellCalls) != 1 || host.shellCalls[0] != "echo a b" {
		t.Errorf("shellCalls = %v, want [\"echo a b\"]", host.shellCalls)
	}
}

func TestBuildUserParameterItems_PropagatesError(t *testing.T) {
	host := &fakeHostOS{shellErr: errTestShell}
	defs := []UserParamDef{{Key: "my.fail", Command: "exit 1"}}

	items := BuildUserParameterItems(host, defs, 0)
	if _, err := items[0].Fn(nil); err == nil {
		t.Error("expected the shell error to propagate")
	}
}

var errTestShell = shellTestError("boom")

type shellTestError string

func (e shellTestError) Error() string { return string(e) }

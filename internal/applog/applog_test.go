package applog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	for _, msg := range []string{"first", "second"} {
		logger, closer, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		logger.Info(msg, "path", "TestDriveUnlimited.exe")
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "msg=first") || !strings.Contains(got, "msg=second") {
		t.Errorf("log = %q, want both records", got)
	}
	if !strings.Contains(got, "path=TestDriveUnlimited.exe") {
		t.Errorf("log = %q, want path attribute", got)
	}
}

func TestOpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", FileName)
	if _, _, err := Open(path); err == nil {
		t.Error("Open() in a missing directory succeeded")
	}
}

func TestDefaultPath(t *testing.T) {
	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if filepath.Base(got) != FileName || !filepath.IsAbs(got) {
		t.Errorf("DefaultPath() = %s", got)
	}
}

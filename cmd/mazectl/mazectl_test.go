package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "schema up to date (sqlite)") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = run(t, "maze", "--day", "2026-06-01")
	if err != nil {
		t.Fatalf("maze: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "2026-06-01  25x17  pool $0.00  settled=false") || !strings.Contains(out, "S") {
		t.Errorf("maze output = %q", out)
	}

	out, err = run(t, "settle", "--day", "2026-06-01")
	if err != nil {
		t.Fatalf("settle: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"outcome": "empty"`) {
		t.Errorf("settle output = %q", out)
	}

	out, err = run(t, "recover")
	if err != nil {
		t.Fatalf("recover: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "null" {
		t.Errorf("recover output = %q, want nothing settled", out)
	}

	if _, err := run(t, "promote", "--username", "ghost"); err == nil {
		t.Error("promoting an unknown account succeeded")
	}
	if _, err := run(t, "maze", "--day", "June"); err == nil {
		t.Error("bad day accepted")
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndShow(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected an already-exists error")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# "+target)
	requireContains(t, out, "invite_expiry_days")
}

func TestConfigPathReportsMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	out, _, err := runCLI(t, []string{"config", "path"}, missing)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, missing)
	requireContains(t, out, "(not created yet)")
}

func TestVerifyRunsAgainstFreshDatabase(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir())

	out, _, err := runCLI(t, []string{"verify"}, configPath)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, `"checked_songs": 0`)
}

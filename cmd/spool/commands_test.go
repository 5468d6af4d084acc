package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "spool.toml")
	content := strings.Join([]string{
		"[paths]",
		`work_dir = "` + filepath.Join(base, "work") + `"`,
		"[worker]",
		"poll_interval = 1",
		"default_priority = 7",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddEchoAndList(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "add", "echo", "hello", "world")
	if err != nil {
		t.Fatalf("add echo: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued task #1") || !strings.Contains(out, "priority 7") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello world") || !strings.Contains(out, "pending") {
		t.Fatalf("unexpected list output: %s", out)
	}
}

func TestAddDeleteValidates(t *testing.T) {
	cfgPath := writeTestConfig(t)
	missing := filepath.Join(t.TempDir(), "absent")

	if out, err := runCLI(t, "--config", cfgPath, "add", "delete", missing); err == nil {
		t.Fatalf("expected validation error for missing file, got: %s", out)
	}

	out, err := runCLI(t, "--config", cfgPath, "add", "delete", "--no-validate", missing)
	if err != nil {
		t.Fatalf("add delete --no-validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued task #1") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStatusCountsStates(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if _, err := runCLI(t, "--config", cfgPath, "add", "echo", "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "--config", cfgPath, "add", "echo", "two", "--priority", "1"); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pending") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected status output: %s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "peek", "-n", "2")
	if err != nil {
		t.Fatalf("peek: %v\n%s", err, out)
	}
	// Priority 1 dequeues before the default 7.
	if !strings.Contains(out, "two") {
		t.Fatalf("unexpected peek output: %s", out)
	}
}

func TestRunDrainProcessesQueue(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if _, err := runCLI(t, "--config", cfgPath, "add", "echo", "drained"); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", cfgPath, "run", "--drain")
	if err != nil {
		t.Fatalf("run --drain: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Processed 1 task(s).") {
		t.Fatalf("unexpected drain output: %s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "list", "--status", "done")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "drained") {
		t.Fatalf("task not finalized as done: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample file missing: %v", err)
	}

	if out, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected error overwriting existing file, got: %s", out)
	}
}

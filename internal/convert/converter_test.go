package convert_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/convert"
)

func TestCopyConverterRoundTrip(t *testing.T) {
	conv, err := convert.New("copy", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := convert.Marshal(conv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	restored, err := convert.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if restored.Name() != conv.Name() {
		t.Fatalf("expected name %q, got %q", conv.Name(), restored.Name())
	}
}

func TestCopyConverterCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	dst := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(src, []byte("body"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv, err := convert.New("copy", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := conv.Run(context.Background(), src, dst); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "body" {
		t.Fatalf("unexpected converted content %q", got)
	}
}

func TestCommandConverter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	dst := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(src, []byte("exec body"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv, err := convert.New("command", map[string]string{"bin": "cp", "args": "{src} {dst}"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := conv.Run(context.Background(), src, dst); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected destination created: %v", err)
	}

	data, err := convert.Marshal(conv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	restored, err := convert.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	opts := restored.Options()
	if opts["bin"] != "cp" || opts["args"] != "{src} {dst}" {
		t.Fatalf("unexpected restored options: %#v", opts)
	}
}

func TestCommandConverterRequiresBinary(t *testing.T) {
	if _, err := convert.New("command", nil); err == nil {
		t.Fatal("expected error when bin option missing")
	}
}

func TestCommandConverterFailureWrapsSentinel(t *testing.T) {
	conv, err := convert.New("command", map[string]string{"bin": "false"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = conv.Run(context.Background(), "a", "b")
	if !errors.Is(err, convert.ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
}

func TestUnknownConverter(t *testing.T) {
	_, err := convert.Unmarshal([]byte(`{"name":"nonexistent"}`))
	if !errors.Is(err, convert.ErrUnknownConverter) {
		t.Fatalf("expected ErrUnknownConverter, got %v", err)
	}
}

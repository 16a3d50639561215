package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExitsOneWhenSecretsMissing(t *testing.T) {
	t.Setenv("PRACTICUM_TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bot.json")
	body := fmt.Sprintf(`{"logging": {"console": false, "file": {"enabled": true, "path": %q}}}`, filepath.Join(dir, "bot.log"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-config", cfgPath,
		"-env", filepath.Join(dir, "absent.env"),
	}, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr: %s)", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "TELEGRAM_TOKEN") {
		t.Fatalf("stderr should name the missing variable: %q", stderr.String())
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-nope"}, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

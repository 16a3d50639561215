package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"homeworkbot/internal/config"
)

func envMap(kv map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func quietConfig(endpoint, telegramURL string) string {
	return fmt.Sprintf(`{
  "practicum": {"endpoint": %q, "timeout": "2s"},
  "telegram": {"url": %q},
  "poll": {"schedule": "1h"},
  "logging": {"level": "error", "console": false, "file": {"enabled": false}}
}`, endpoint, telegramURL)
}

func TestNewStopsBeforeNetworkWhenSecretsMissing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	path := writeConfig(t, quietConfig(srv.URL+"/api/", srv.URL))
	_, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p-token",
	})})
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), config.EnvTelegramToken) || !strings.Contains(err.Error(), config.EnvTelegramChatID) {
		t.Fatalf("error should name the missing variables: %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("no request may be made before the secrets are verified")
	}
}

// loggedConfig enables only the JSON file sink so the records can be read back.
func loggedConfig(logPath string) string {
	return fmt.Sprintf(`{
  "poll": {"schedule": "1h"},
  "logging": {"level": "debug", "console": false, "file": {"enabled": true, "path": %q}}
}`, logPath)
}

func readLogLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("read log: %v", err)
	}
	return lines
}

func findCritical(lines []map[string]any) map[string]any {
	for _, l := range lines {
		if l["level"] == "fatal" && l["severity"] == "critical" {
			return l
		}
	}
	return nil
}

func containsString(v any, want string) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}

func TestNewLogsCriticalRecordForMissingSecrets(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bot.log")
	path := writeConfig(t, loggedConfig(logPath))

	_, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p-token",
		config.EnvTelegramChatID: "7",
	})})
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}

	rec := findCritical(readLogLines(t, logPath))
	if rec == nil {
		t.Fatalf("no critical record written to %s", logPath)
	}
	if !containsString(rec["missing"], config.EnvTelegramToken) {
		t.Fatalf("critical record should name %s: %v", config.EnvTelegramToken, rec)
	}
	if containsString(rec["missing"], config.EnvTelegramChatID) {
		t.Fatalf("chat id was provided and must not be reported: %v", rec)
	}
	if rec["state"] != "FATAL_STOP" {
		t.Fatalf("state = %v, want FATAL_STOP", rec["state"])
	}
}

func TestNewStopsOnNonIntegerChatID(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "bot.log")
	path := writeConfig(t, fmt.Sprintf(`{
  "practicum": {"endpoint": %q},
  "telegram": {"url": %q},
  "logging": {"level": "info", "console": false, "file": {"enabled": true, "path": %q}}
}`, srv.URL+"/api/", srv.URL, logPath))

	_, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p-token",
		config.EnvTelegramToken:  "1:t",
		config.EnvTelegramChatID: "@my_channel",
	})})
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), config.EnvTelegramChatID) {
		t.Fatalf("error should name %s: %v", config.EnvTelegramChatID, err)
	}
	if hits.Load() != 0 {
		t.Fatalf("no request may be made with an unusable chat id")
	}

	rec := findCritical(readLogLines(t, logPath))
	if rec == nil {
		t.Fatalf("no critical record written to %s", logPath)
	}
	if !containsString(rec["missing"], config.EnvTelegramChatID) {
		t.Fatalf("critical record should name %s: %v", config.EnvTelegramChatID, rec)
	}
	invalid, _ := rec["invalid"].([]any)
	if len(invalid) != 1 || !strings.Contains(fmt.Sprint(invalid[0]), "integer") {
		t.Fatalf("critical record should explain the bad chat id: %v", rec)
	}
}

func TestNewStopsOnUnreadableConfig(t *testing.T) {
	path := writeConfig(t, `{"poll": `)
	_, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p",
		config.EnvTelegramToken:  "1:t",
		config.EnvTelegramChatID: "7",
	})})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	path := writeConfig(t, `{"poll": {"schedule": "whenever"}, "logging": {"console": false, "file": {"enabled": false}}}`)
	_, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p",
		config.EnvTelegramToken:  "1:t",
		config.EnvTelegramChatID: "7",
	})})
	if err == nil || !strings.Contains(err.Error(), "poll.schedule") {
		t.Fatalf("expected schedule error, got %v", err)
	}
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []map[string]any
	got  chan struct{}
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.sent = append(f.sent, body)
	f.mu.Unlock()
	select {
	case f.got <- struct{}{}:
	default:
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true,
		"result": map[string]any{
			"message_id": 1,
			"date":       0,
			"chat":       map[string]any{"id": 7, "type": "private"},
			"text":       body["text"],
		},
	})
}

func TestRunDeliversStatusAndStopsOnCancel(t *testing.T) {
	practicum := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "OAuth p-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"homeworks": [{"homework_name": "hw1", "status": "approved"}], "current_date": 1000}`))
	}))
	defer practicum.Close()

	tg := &fakeTelegram{got: make(chan struct{}, 1)}
	tgSrv := httptest.NewServer(tg)
	defer tgSrv.Close()

	path := writeConfig(t, quietConfig(practicum.URL+"/api/", tgSrv.URL))
	a, err := New(Options{ConfigPath: path, Lookup: envMap(map[string]string{
		config.EnvPracticumToken: "p-token",
		config.EnvTelegramToken:  "1:t",
		config.EnvTelegramChatID: "7",
	})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-tg.got:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("no notification delivered")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run should stop cleanly on cancel, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	tg.mu.Lock()
	defer tg.mu.Unlock()
	if len(tg.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tg.sent))
	}
	want := `Изменился статус проверки работы "hw1". Работа проверена: ревьюеру всё понравилось. Ура!`
	if tg.sent[0]["text"] != want || tg.sent[0]["chat_id"] != "7" {
		t.Fatalf("unexpected message: %v", tg.sent[0])
	}
	if a.poller.Cursor() != 1000 {
		t.Fatalf("cursor = %d, want 1000", a.poller.Cursor())
	}
}

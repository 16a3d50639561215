package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type fakeSender struct {
	err   error
	calls []string
	to    []kit.ChatTarget
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.calls = append(f.calls, text)
	f.to = append(f.to, to)
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.calls)}, nil
}

func TestNotifyDeliversToTarget(t *testing.T) {
	var buf bytes.Buffer
	s := &fakeSender{}
	svc := New(Config{Target: kit.ChatTarget{ChatID: 7}}, s, logx.NewWriter(&buf, "debug"))

	svc.Notify(context.Background(), "hello")

	if len(s.calls) != 1 || s.calls[0] != "hello" || s.to[0].ChatID != 7 {
		t.Fatalf("unexpected sends: %v %v", s.calls, s.to)
	}
	if !strings.Contains(buf.String(), `"level":"debug"`) || !strings.Contains(buf.String(), "notification sent") {
		t.Fatalf("expected debug log on success, got %s", buf.String())
	}
	if sent, failed := svc.Stats(); sent != 1 || failed != 0 {
		t.Fatalf("unexpected stats: sent=%d failed=%d", sent, failed)
	}
}

func TestNotifySwallowsSendErrors(t *testing.T) {
	var buf bytes.Buffer
	s := &fakeSender{err: errors.New("chat not found")}
	svc := New(Config{Target: kit.ChatTarget{ChatID: 7}}, s, logx.NewWriter(&buf, "debug"))

	svc.Notify(context.Background(), "hello")

	if len(s.calls) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(s.calls))
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "chat not found") {
		t.Fatalf("expected error log, got %s", buf.String())
	}
	if _, failed := svc.Stats(); failed != 1 {
		t.Fatalf("expected one failure recorded")
	}
}

func TestNotifySkipsEmptyText(t *testing.T) {
	s := &fakeSender{}
	New(Config{}, s, logx.Nop()).Notify(context.Background(), "   ")
	if len(s.calls) != 0 {
		t.Fatalf("empty text must not be sent")
	}
}

func TestNotifyDropsOnCancelledContext(t *testing.T) {
	s := &fakeSender{}
	svc := New(Config{RatePerSec: 1}, s, logx.Nop())
	// Drain the single token so the next Wait has to block.
	svc.Notify(context.Background(), "first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Notify(ctx, "second")

	if len(s.calls) != 1 {
		t.Fatalf("cancelled notify must not reach the sender, calls=%v", s.calls)
	}
}

package notifier

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type Service struct {
	sender  kit.Sender
	log     logx.Logger
	cfg     Config
	limiter *rate.Limiter

	sent   atomic.Uint64
	failed atomic.Uint64
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Options == nil {
		cfg.Options = &kit.SendOptions{DisablePreview: true}
	}
	return &Service{
		sender:  sender,
		log:     log,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Notify makes one delivery attempt. Errors are logged and swallowed.
func (s *Service) Notify(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" || s.sender == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.failed.Add(1)
		s.log.Error("notification dropped", logx.Int64("chat_id", s.cfg.Target.ChatID), logx.Err(err))
		return
	}

	ref, err := s.sender.SendText(ctx, s.cfg.Target, text, s.cfg.Options)
	if err != nil {
		s.failed.Add(1)
		s.log.Error("notification send failed", logx.Int64("chat_id", s.cfg.Target.ChatID), logx.Err(err))
		return
	}
	s.sent.Add(1)
	s.log.Debug("notification sent", logx.Int64("chat_id", ref.ChatID), logx.Int("message_id", ref.MessageID))
}

// Stats returns how many notifications were delivered and dropped so far.
func (s *Service) Stats() (sent, failed uint64) {
	return s.sent.Load(), s.failed.Load()
}

package app

import (
	"fmt"

	"homeworkbot/internal/config"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/poller"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

// ---- Config mapping ----

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			Compress:   cfg.Logging.File.Compress,
		},
	}
}

func mapPollerConfig(cfg *config.Config) (poller.Config, error) {
	sched, err := poller.ParseSchedule(cfg.Poll.Schedule)
	if err != nil {
		return poller.Config{}, fmt.Errorf("poll.schedule: %w", err)
	}
	dedup, err := poller.ParseDedupMode(cfg.Poll.Dedup)
	if err != nil {
		return poller.Config{}, fmt.Errorf("poll.dedup: %w", err)
	}
	return poller.Config{Schedule: sched, Dedup: dedup}, nil
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		Target:     kit.ChatTarget{ChatID: cfg.Telegram.ChatID},
		RatePerSec: cfg.Notifier.RatePerSec,
		Options:    &kit.SendOptions{DisablePreview: true},
	}
}

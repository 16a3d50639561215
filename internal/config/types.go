package config

import "time"

// Config is built once at startup (and re-read by Watch) and passed down by
// value. Secrets normally come from the environment, see ApplyEnv.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Notifier  NotifierConfig  `json:"notifier"`
	Logging   LoggingConfig   `json:"logging"`

	invalid []string
}

// PracticumConfig points at the homework status API.
//
// Timeout is a Go duration string (e.g. "30s").
type PracticumConfig struct {
	Token    string `json:"token,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
	// URL overrides the Bot API base URL (tests, self-hosted Bot API servers).
	URL string `json:"url,omitempty"`
}

// PollConfig controls the poll loop.
//
// Schedule accepts the same forms as poller.ParseSchedule: a Go duration
// ("10m"), HH:MM ("00:10") or a cron expression ("*/10 * * * *", "@every 10m").
// Dedup is "message" (default) or "submission".
type PollConfig struct {
	Schedule string `json:"schedule,omitempty"`
	Dedup    string `json:"dedup,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTimeout  = 30 * time.Second
	DefaultSchedule = "10m"
	DefaultLogPath  = "logs/homework_bot.log"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Practicum: PracticumConfig{Endpoint: DefaultEndpoint, Timeout: DefaultTimeout.String()},
		Poll:      PollConfig{Schedule: DefaultSchedule, Dedup: "message"},
		Notifier:  NotifierConfig{RatePerSec: 1},
		Logging: LoggingConfig{
			Level:   "debug",
			Console: true,
			File: LoggingFile{
				Enabled:    true,
				Path:       DefaultLogPath,
				MaxSizeMB:  50,
				MaxBackups: 5,
			},
		},
	}
}

// fillDefaults sets zero-valued knobs from Default without touching secrets.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Practicum.Endpoint == "" {
		c.Practicum.Endpoint = d.Practicum.Endpoint
	}
	if c.Practicum.Timeout == "" {
		c.Practicum.Timeout = d.Practicum.Timeout
	}
	if c.Poll.Schedule == "" {
		c.Poll.Schedule = d.Poll.Schedule
	}
	if c.Poll.Dedup == "" {
		c.Poll.Dedup = d.Poll.Dedup
	}
	if c.Notifier.RatePerSec <= 0 {
		c.Notifier.RatePerSec = d.Notifier.RatePerSec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		c.Logging.File.Path = d.Logging.File.Path
	}
}

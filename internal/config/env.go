package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

const (
	EnvPracticumToken       = "PRACTICUM_TOKEN"
	EnvPracticumTokenLegacy = "PRAKTIKUM_TOKEN"
	EnvTelegramToken        = "TELEGRAM_TOKEN"
	EnvTelegramChatID       = "TELEGRAM_CHAT_ID"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv exports variables from a dotenv file without overriding ones
// already present in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the secrets found in the environment on top of c. A
// value that cannot be parsed leaves the field unset and is reported by
// Missing and Invalid, so it takes the same stop path as an absent one.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get(EnvPracticumToken); v != "" {
		c.Practicum.Token = v
	} else if v := get(EnvPracticumTokenLegacy); v != "" {
		c.Practicum.Token = v
	}
	if v := get(EnvTelegramToken); v != "" {
		c.Telegram.Token = v
	}
	if v := get(EnvTelegramChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.invalid = append(c.invalid, fmt.Sprintf("%s: chat id must be an integer: %v", EnvTelegramChatID, err))
		} else {
			c.Telegram.ChatID = id
		}
	}
}

// Invalid describes environment values that were present but unusable.
func (c *Config) Invalid() []string { return c.invalid }

// Missing lists the environment variables whose values are still absent.
func (c *Config) Missing() []string {
	var out []string
	if strings.TrimSpace(c.Practicum.Token) == "" {
		out = append(out, EnvPracticumToken)
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		out = append(out, EnvTelegramToken)
	}
	if c.Telegram.ChatID == 0 {
		out = append(out, EnvTelegramChatID)
	}
	return out
}

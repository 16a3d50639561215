package notifier

import kit "homeworkbot/internal/transport"

// Config describes the single delivery target and send pacing.
type Config struct {
	Target     kit.ChatTarget
	RatePerSec int
	Options    *kit.SendOptions
}

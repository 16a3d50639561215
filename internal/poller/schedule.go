package poller

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the pause between two polls when nothing is configured.
const DefaultInterval = 600 * time.Second

type ScheduleKind int

const (
	ScheduleInterval ScheduleKind = iota
	ScheduleCron
)

// Schedule decides when the next poll starts.
//
// Supported forms:
//   - Interval duration: "10m", "600s"
//   - Interval HH:MM: "00:10" (10 minutes), "01:30" (1 hour 30 minutes)
//   - Cron: "*/10 * * * *", "@hourly", "@every 10m"
//
// Optional prefixes "cron:" and "interval:" force the interpretation.
type Schedule struct {
	Kind   ScheduleKind
	Every  time.Duration
	Source string // "cron" | "duration" | "hhmm"
	Spec   string

	next cron.Schedule
}

// Next returns the activation strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.next == nil {
		return t.Add(DefaultInterval)
	}
	return s.next.Next(t)
}

// Delay is how long to sleep from t until the next activation.
func (s Schedule) Delay(t time.Time) time.Duration {
	d := s.Next(t).Sub(t)
	if d < 0 {
		return 0
	}
	return d
}

func (s Schedule) String() string { return s.Spec }

// EverySchedule builds an interval schedule without parsing.
func EverySchedule(d time.Duration) Schedule {
	if d <= 0 {
		d = DefaultInterval
	}
	return Schedule{Kind: ScheduleInterval, Every: d, Source: "duration", Spec: d.String(), next: cron.Every(d)}
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSchedule parses a poll schedule. An empty string means DefaultInterval.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return EverySchedule(DefaultInterval), nil
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(strings.TrimSpace(s[len("interval:"):]))
	case strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@"):
		return parseCron(s)
	default:
		return parseInterval(s)
	}
}

func parseCron(expr string) (Schedule, error) {
	if expr == "" {
		return Schedule{}, fmt.Errorf("cron schedule required")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	out := Schedule{Kind: ScheduleCron, Source: "cron", Spec: expr, next: sched}
	if cd, ok := sched.(cron.ConstantDelaySchedule); ok {
		out.Every = cd.Delay
	}
	return out, nil
}

func parseInterval(v string) (Schedule, error) {
	if v == "" {
		return Schedule{}, fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Schedule{}, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		s := EverySchedule(d)
		s.Source = "hhmm"
		s.Spec = v
		return s, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Schedule{}, fmt.Errorf(
			"invalid schedule %q (use a duration like '10m', HH:MM like '00:10', or cron like '*/10 * * * *')", v)
	}
	if d < time.Second {
		return Schedule{}, fmt.Errorf("interval must be at least 1s")
	}
	return EverySchedule(d), nil
}

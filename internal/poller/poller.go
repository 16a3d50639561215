package poller

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"homeworkbot/internal/homework"
	logx "homeworkbot/pkg/logx"
)

// Fetcher returns the raw API answer for statuses changed since cursor.
type Fetcher interface {
	Fetch(ctx context.Context, cursor int64) (gjson.Result, error)
}

// Notifier makes one best-effort delivery attempt.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type State int32

const (
	StateStarting State = iota
	StatePolling
	StateSleeping
	StateFatalStop
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StatePolling:
		return "POLLING"
	case StateSleeping:
		return "SLEEPING"
	case StateFatalStop:
		return "FATAL_STOP"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DedupMode selects what counts as "the same" notification.
type DedupMode string

const (
	// DedupMessage compares the rendered text, so two homeworks with the
	// same verdict text are treated as one event.
	DedupMessage DedupMode = "message"
	// DedupSubmission compares (homework_name, status) for status changes.
	DedupSubmission DedupMode = "submission"
)

func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DedupMessage:
		return DedupMessage, nil
	case DedupSubmission:
		return DedupSubmission, nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q (use %q or %q)", s, DedupMessage, DedupSubmission)
	}
}

// ErrorPrefix starts every diagnostic message sent to the chat.
const ErrorPrefix = "Ошибка работы программы: "

type Outcome int

const (
	// OutcomeNotified: a new status was sent.
	OutcomeNotified Outcome = iota
	// OutcomeDuplicate: the status equals the last notified one.
	OutcomeDuplicate
	// OutcomeNoUpdates: the API reported no changed submissions.
	OutcomeNoUpdates
	// OutcomeReported: the cycle failed and the diagnostic was sent.
	OutcomeReported
	// OutcomeSuppressed: the cycle failed with the same diagnostic as before.
	OutcomeSuppressed
	// OutcomeCancelled: the run context ended mid-cycle.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotified:
		return "notified"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNoUpdates:
		return "no_updates"
	case OutcomeReported:
		return "reported"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result describes one POLLING step.
type Result struct {
	Outcome Outcome
	Message string
	Cursor  int64
	Err     error
}

type Config struct {
	Schedule Schedule
	Dedup    DedupMode

	// Now and Wait default to the wall clock and a context-aware timer.
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration) error

	// AfterCycle runs after every completed POLLING step.
	AfterCycle func(Result)
}

// Poller runs the fetch, validate, interpret, dedup, notify, sleep loop.
// Everything except State is owned by the goroutine calling Run or Poll.
type Poller struct {
	fetch  Fetcher
	notify Notifier
	log    logx.Logger
	cfg    Config

	state atomic.Int32

	cursor      int64
	lastKey     string
	lastMessage string
	cycles      uint64
}

func New(cfg Config, fetch Fetcher, notify Notifier, log logx.Logger) *Poller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Wait == nil {
		cfg.Wait = sleepCtx
	}
	if cfg.Schedule.next == nil {
		cfg.Schedule = EverySchedule(DefaultInterval)
	}
	if cfg.Dedup == "" {
		cfg.Dedup = DedupMessage
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		fetch:  fetch,
		notify: notify,
		log:    log,
		cfg:    cfg,
		cursor: cfg.Now().Unix(),
	}
	p.state.Store(int32(StateStarting))
	return p
}

func (p *Poller) State() State { return State(p.state.Load()) }

func (p *Poller) setState(s State) { p.state.Store(int32(s)) }

// Cursor is the lower bound of the next fetch window (unix seconds).
func (p *Poller) Cursor() int64 { return p.cursor }

// LastMessage is the text of the last notification handed to the Notifier.
func (p *Poller) LastMessage() string { return p.lastMessage }

// Run polls until ctx is cancelled. It never returns an error for a failed
// cycle; those are reported through the Notifier.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started",
		logx.Int64("cursor", p.cursor),
		logx.String("schedule", p.cfg.Schedule.String()),
		logx.String("dedup", string(p.cfg.Dedup)),
	)
	defer p.log.Info("poller stopped", logx.Int64("cursor", p.cursor))

	for {
		p.setState(StatePolling)
		res := p.Poll(ctx)
		if res.Outcome == OutcomeCancelled || ctx.Err() != nil {
			return nil
		}
		if p.cfg.AfterCycle != nil {
			p.cfg.AfterCycle(res)
		}

		p.setState(StateSleeping)
		now := p.cfg.Now()
		delay := p.cfg.Schedule.Delay(now)
		p.log.Debug("sleeping until next poll",
			logx.String("state", StateSleeping.String()),
			logx.Time("next", now.Add(delay)),
			logx.Duration("delay", delay),
		)
		if err := p.cfg.Wait(ctx, delay); err != nil {
			return nil
		}
	}
}

// Poll performs one POLLING step.
func (p *Poller) Poll(ctx context.Context) Result {
	p.cycles++
	log := p.log.With(
		logx.String("state", StatePolling.String()),
		logx.Int64("cycle", int64(p.cycles)),
		logx.Int64("cursor", p.cursor),
	)

	raw, err := p.fetch.Fetch(ctx, p.cursor)
	if err != nil {
		return p.fail(ctx, log, err)
	}

	resp, err := homework.Validate(raw)
	if err != nil {
		return p.fail(ctx, log, err)
	}

	record, ok := resp.Latest()
	if !ok {
		p.cursor = resp.CurrentDate
		log.Debug("no new statuses", logx.Int64("next_cursor", p.cursor))
		return Result{Outcome: OutcomeNoUpdates, Cursor: p.cursor}
	}

	sub, err := homework.ParseSubmission(record)
	if err != nil {
		return p.fail(ctx, log, err)
	}
	msg, err := homework.Format(sub)
	if err != nil {
		return p.fail(ctx, log, err)
	}

	p.cursor = resp.CurrentDate

	key := msg
	if p.cfg.Dedup == DedupSubmission {
		key = "status:" + sub.Key()
	}
	if key == p.lastKey {
		log.Debug("status unchanged; notification suppressed",
			logx.String("homework", sub.Name),
			logx.String("status", sub.Status),
			logx.Int64("next_cursor", p.cursor),
		)
		return Result{Outcome: OutcomeDuplicate, Message: msg, Cursor: p.cursor}
	}

	p.remember(key, msg)
	log.Info("homework status changed",
		logx.String("homework", sub.Name),
		logx.String("status", sub.Status),
		logx.Int64("next_cursor", p.cursor),
	)
	p.notify.Notify(ctx, msg)
	return Result{Outcome: OutcomeNotified, Message: msg, Cursor: p.cursor}
}

// fail is the shared report path: log, then notify unless the diagnostic
// equals the last one. The cursor is left alone.
func (p *Poller) fail(ctx context.Context, log logx.Logger, err error) Result {
	if ctx.Err() != nil {
		return Result{Outcome: OutcomeCancelled, Cursor: p.cursor, Err: ctx.Err()}
	}

	kind := homework.KindOf(err)
	switch kind {
	case homework.KindTransport, homework.KindBadStatus:
		log = log.With(logx.String("stage", "fetch"))
	case homework.KindShape:
		log = log.With(logx.String("stage", "validate"))
	case homework.KindMissingField, homework.KindUnknownVerdict:
		log = log.With(logx.String("stage", "interpret"))
	default:
		log = log.With(logx.String("stage", "unexpected"))
	}

	msg := ErrorPrefix + err.Error()
	log.Error("poll cycle failed", logx.String("kind", kind.String()), logx.Err(err))

	if msg == p.lastKey {
		log.Debug("same failure as last cycle; notification suppressed")
		return Result{Outcome: OutcomeSuppressed, Message: msg, Cursor: p.cursor, Err: err}
	}

	p.remember(msg, msg)
	p.notify.Notify(ctx, msg)
	return Result{Outcome: OutcomeReported, Message: msg, Cursor: p.cursor, Err: err}
}

func (p *Poller) remember(key, msg string) {
	p.lastKey = key
	p.lastMessage = msg
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

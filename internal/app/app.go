package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"homeworkbot/internal/config"
	"homeworkbot/internal/homework"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/poller"
	"homeworkbot/internal/runtime/supervisor"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
)

// ErrMissingConfig means a required secret is absent; the process must stop
// before contacting any remote service.
var ErrMissingConfig = errors.New("required configuration is missing")

type Options struct {
	// ConfigPath is an optional JSON/YAML file with non-secret knobs.
	ConfigPath string
	// DotEnvPath defaults to ".env" in the working directory.
	DotEnvPath string
	// Lookup replaces the process environment. When set, no dotenv file is
	// loaded.
	Lookup config.LookupFunc
}

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service

	notif  *notifier.Service
	poller *poller.Poller
	sup    *supervisor.Supervisor
}

// New loads configuration, verifies the required secrets and wires the
// components. Nothing here talks to the network.
func New(opts Options) (*App, error) {
	if opts.Lookup == nil {
		if err := config.LoadDotEnv(opts.DotEnvPath); err != nil {
			return nil, err
		}
	}

	cfgm := config.NewConfigManager(opts.ConfigPath, opts.Lookup)
	cfg, err := cfgm.Load()
	if err != nil {
		// The file sink is configured by the file that failed to load.
		logx.NewConsole("info").Critical("config load failed; stopping",
			logx.String("config", cfgm.Path()),
			logx.String("state", poller.StateFatalStop.String()),
			logx.Err(err),
		)
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	if missing := cfg.Missing(); len(missing) > 0 {
		log.Critical("required environment variables are missing; stopping",
			logx.Strings("missing", missing),
			logx.Strings("invalid", cfg.Invalid()),
			logx.String("state", poller.StateFatalStop.String()),
		)
		_ = logSvc.Close()
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	pcfg, err := mapPollerConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	timeout, err := cfg.PracticumTimeout()
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	// Send-only bot: skip the getMe round trip so startup stays offline.
	ad, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		URL:     cfg.Telegram.URL,
		Offline: true,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	notif := notifier.New(mapNotifierConfig(cfg), ad, log.With(logx.String("comp", "notifier")))

	client, err := homework.NewClient(homework.ClientConfig{
		Endpoint: cfg.Practicum.Endpoint,
		Token:    cfg.Practicum.Token,
		Timeout:  timeout,
	}, log.With(logx.String("comp", "practicum")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("practicum: %w", err)
	}

	a := &App{
		cfgm:  cfgm,
		cfg:   cfg,
		log:   log,
		logs:  logSvc,
		notif: notif,
	}
	pcfg.AfterCycle = a.afterCycle
	a.poller = poller.New(pcfg, client, notif, log.With(logx.String("comp", "poller")))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	return a, nil
}

// Run blocks until ctx is cancelled or a supervised goroutine fails. A
// cancelled ctx is a clean shutdown and yields nil.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.sup.GoRestart("poller", a.poller.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.Go0("systemd.watchdog", watchdogLoop)

	underSystemd := notifySystemd(a.log, daemon.SdNotifyReady)
	a.log.Info("app started",
		logx.String("config", a.cfgm.Path()),
		logx.Bool("systemd", underSystemd),
		logx.String("schedule", a.cfg.Poll.Schedule),
		logx.String("dedup", a.cfg.Poll.Dedup),
		logx.Int64("chat_id", a.cfg.Telegram.ChatID),
	)

	<-a.sup.Context().Done()
	notifySystemd(a.log, daemon.SdNotifyStopping)
	if err := a.sup.Err(); err != nil {
		a.log.Error("supervised goroutine failed; stopping", logx.Err(err))
	} else {
		a.log.Info("stopping")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.sup.Stop(stopCtx)

	sent, failed := a.notif.Stats()
	a.log.Info("stopped",
		logx.Int64("cursor", a.poller.Cursor()),
		logx.Int64("notifications_sent", int64(sent)),
		logx.Int64("notifications_failed", int64(failed)),
	)
	_ = a.logs.Close()

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown timed out: %w", err)
	}
	return err
}

func (a *App) afterCycle(res poller.Result) {
	a.log.Debug("poll cycle finished",
		logx.String("outcome", res.Outcome.String()),
		logx.Int64("cursor", res.Cursor),
	)
	notifySystemd(a.log, "STATUS=last poll: "+res.Outcome.String())
}

// reloadLoop applies hot-reloadable settings. Only logging is live; the
// poll schedule and secrets are read once at startup.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)

	last := a.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			a.logs.Apply(mapLoggingConfig(next))
			if next.Poll != last.Poll || next.Practicum != last.Practicum || next.Telegram != last.Telegram {
				a.log.Warn("poll, practicum or telegram settings changed; restart required for changes to take effect")
			}
			if next.Notifier != last.Notifier {
				a.log.Warn("notifier settings changed; restart required for changes to take effect")
			}
			a.log.Info("config reloaded", logx.String("level", next.Logging.Level))
			last = next
		}
	}
}

func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

// notifySystemd is a no-op outside systemd (NOTIFY_SOCKET unset) and
// reports whether the message was delivered.
func notifySystemd(log logx.Logger, state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
	return sent
}

package app

import (
	"time"

	"kostbot/internal/config"
	"kostbot/internal/services/pprof"
	"kostbot/internal/services/queue"
	"kostbot/internal/services/reminder"
	"kostbot/internal/services/scheduler"
	"kostbot/internal/storage"
	"kostbot/internal/transport/telegram"
	logx "kostbot/pkg/logx"
)

// The mapping helpers translate the string-typed wire config into the typed
// service configs. Duration parse errors surface here so a bad hot-reload is
// rejected before any service sees it.

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapTelegram(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:      cfg.Telegram.Token,
		RatePerSec: cfg.Telegram.RatePerSec,
	}
}

func mapQueue(cfg *config.Config) (queue.Config, error) {
	minD, err := config.ParseDurationField("queue.min_delay", cfg.Queue.MinDelay)
	if err != nil {
		return queue.Config{}, err
	}
	maxD, err := config.ParseDurationField("queue.max_delay", cfg.Queue.MaxDelay)
	if err != nil {
		return queue.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("queue.send_timeout", cfg.Queue.SendTimeout, 30*time.Second)
	if err != nil {
		return queue.Config{}, err
	}
	return queue.Config{MinDelay: minD, MaxDelay: maxD, SendTimeout: timeout}, nil
}

func mapScheduler(cfg *config.Config) (scheduler.Config, error) {
	tick, err := config.ParseDurationOrDefault("scheduler.tick_interval", cfg.Scheduler.TickInterval, time.Minute)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{TickInterval: tick, Timezone: cfg.Scheduler.Timezone}, nil
}

func mapReminder(cfg *config.Config) (reminder.Config, error) {
	tol, err := config.ParseDurationOrDefault("reminder.tolerance", cfg.Reminder.Tolerance, 24*time.Hour)
	if err != nil {
		return reminder.Config{}, err
	}
	return reminder.Config{
		H15Schedule:   cfg.Reminder.H15Schedule,
		H1Schedule:    cfg.Reminder.H1Schedule,
		ResetSchedule: cfg.Reminder.ResetSchedule,
		Tolerance:     tol,
	}, nil
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	if cfg.Storage == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapPprof(cfg *config.Config) (pprof.Config, error) {
	rt, err := config.ParseDurationField("pprof.read_timeout", cfg.Pprof.ReadTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	wt, err := config.ParseDurationField("pprof.write_timeout", cfg.Pprof.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	it, err := config.ParseDurationField("pprof.idle_timeout", cfg.Pprof.IdleTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:       cfg.Pprof.Enabled,
		Addr:          cfg.Pprof.Addr,
		Token:         cfg.Pprof.Token,
		AllowInsecure: cfg.Pprof.AllowInsecure,
		ReadTimeout:   rt,
		WriteTimeout:  wt,
		IdleTimeout:   it,
	}, nil
}

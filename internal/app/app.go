// Package app wires configuration, transport, storage and the notification
// services into one process.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kostbot/internal/config"
	"kostbot/internal/eventbus"
	"kostbot/internal/services/pprof"
	"kostbot/internal/services/queue"
	"kostbot/internal/services/reminder"
	"kostbot/internal/services/scheduler"
	"kostbot/internal/storage"
	kit "kostbot/internal/transport"
	"kostbot/internal/transport/telegram"
	logx "kostbot/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store  storage.Store
	sender kit.Sender

	queue *queue.Service
	sched *scheduler.Service
	rem   *reminder.Service
	pprof *pprof.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, err := mapStorage(cfg); err != nil {
		return nil, err
	} else if sc.Driver != "" {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("storage enabled", logx.String("driver", sc.Driver))
		}
	}

	sender, err := telegram.New(mapTelegram(cfg), log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	qcfg, err := mapQueue(cfg)
	if err != nil {
		return nil, err
	}
	process := func(ctx context.Context, it queue.Item) queue.Outcome {
		_, err := sender.SendText(ctx, kit.ChatTarget{Recipient: it.Recipient}, it.Body, nil)
		if err != nil {
			return queue.Outcome{Success: false, Err: err}
		}
		return queue.Outcome{Success: true}
	}
	queueSvc := queue.New(qcfg, process, log.With(logx.String("comp", "queue")), bus)

	scfg, err := mapScheduler(cfg)
	if err != nil {
		return nil, err
	}
	schedSvc := scheduler.New(scfg, log.With(logx.String("comp", "scheduler")), bus)

	rcfg, err := mapReminder(cfg)
	if err != nil {
		return nil, err
	}
	var remSvc *reminder.Service
	if store != nil {
		remSvc = reminder.New(rcfg, schedSvc, queueSvc, store, log.With(logx.String("comp", "reminder")))
	} else {
		log.Warn("storage disabled; expiry reminders will not run")
	}

	pcfg, err := mapPprof(cfg)
	if err != nil {
		return nil, err
	}
	pprofSvc := pprof.New(pcfg, log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		sender:  sender,
		queue:   queueSvc,
		sched:   schedSvc,
		rem:     remSvc,
		pprof:   pprofSvc,
	}, nil
}

// Reminder exposes the orchestrator for operational surfaces (manual checks).
// Nil when storage is disabled.
func (a *App) Reminder() *reminder.Service { return a.rem }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Reject hot-reloads whose schedule strings or durations don't parse; the
	// base field validation already ran in the manager.
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapQueue(cfg); err != nil {
			return err
		}
		if _, err := mapPprof(cfg); err != nil {
			return err
		}
		rcfg, err := mapReminder(cfg)
		if err != nil {
			return err
		}
		for _, spec := range []string{rcfg.H15Schedule, rcfg.H1Schedule, rcfg.ResetSchedule} {
			if spec == "" {
				continue
			}
			if _, err := scheduler.ParseSpec(spec); err != nil {
				return fmt.Errorf("reminder schedule: %w", err)
			}
		}
		return nil
	})

	a.queue.Start(runCtx)
	a.sched.Init(runCtx)
	if a.rem != nil {
		if err := a.rem.Init(runCtx); err != nil {
			cancel()
			return err
		}
	}
	a.pprof.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reloadLoop(runCtx)
	}()

	if a.store != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.auditLoop(runCtx)
		}()
	}

	a.log.Info("kostbot started")
	return nil
}

// reloadLoop applies hot-reloadable settings. Scheduler tick and timezone
// changes require a restart and are deliberately not applied here.
func (a *App) reloadLoop(ctx context.Context) {
	ch := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return
			}
			a.logs.Apply(mapLogging(cfg))
			if qcfg, err := mapQueue(cfg); err == nil {
				a.queue.Apply(qcfg)
			}
			if pcfg, err := mapPprof(cfg); err == nil {
				a.pprof.Reconfigure(ctx, pcfg)
			}
			a.log.Info("config reloaded")
		}
	}
}

// auditLoop mirrors delivery outcomes into the persistent audit table.
func (a *App) auditLoop(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			de, isDelivery := ev.Data.(queue.DeliveryEvent)
			if !isDelivery {
				continue
			}
			rec := storage.DeliveryRecord{
				At:        ev.Time,
				ItemID:    de.ItemID,
				Recipient: de.Recipient,
				OK:        ev.Type == eventbus.TypeDeliverySent,
				Error:     de.Error,
				TookMS:    de.TookMS,
			}
			wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.store.AppendDelivery(wctx, rec); err != nil {
				a.log.Warn("delivery audit write failed", logx.String("item", de.ItemID), logx.Err(err))
			}
			cancel()
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	a.sched.StopAll(ctx)
	a.queue.Stop(ctx)
	a.pprof.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("kostbot stopped")
	_ = a.logs.Close()
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks cross-field constraints that the decoder cannot. Schedule
// strings are validated by the reminder service at registration time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}

	minD, err := ParseDurationField("queue.min_delay", c.Queue.MinDelay)
	if err != nil {
		return err
	}
	maxD, err := ParseDurationField("queue.max_delay", c.Queue.MaxDelay)
	if err != nil {
		return err
	}
	if maxD < minD {
		return fmt.Errorf("queue.max_delay (%s) must be >= queue.min_delay (%s)", maxD, minD)
	}
	if _, err := ParseDurationField("queue.send_timeout", c.Queue.SendTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("scheduler.tick_interval", c.Scheduler.TickInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("reminder.tolerance", c.Reminder.Tolerance); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	if c.Pprof.Enabled {
		addr := strings.TrimSpace(c.Pprof.Addr)
		loopback := addr == "" || strings.HasPrefix(addr, "127.") || strings.HasPrefix(addr, "localhost")
		if !loopback && c.Pprof.Token == "" && !c.Pprof.AllowInsecure {
			return errors.New("pprof: non-loopback addr requires a token or allow_insecure")
		}
	}
	return nil
}

package config

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`

	// Queue controls delivery pacing. All durations are Go duration strings
	// (e.g. "500ms", "10s", "1m").
	Queue QueueConfig `json:"queue"`

	Scheduler SchedulerConfig `json:"scheduler"`
	Reminder  ReminderConfig  `json:"reminder"`

	Storage *StorageConfig `json:"storage,omitempty"`
	Pprof   PprofConfig    `json:"pprof,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// RatePerSec caps outgoing messages per second. 0 means the default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// QueueConfig controls the delivery queue. MinDelay/MaxDelay bound the random
// pause between consecutive sends; SendTimeout bounds one attempt.
type QueueConfig struct {
	MinDelay    string `json:"min_delay"`
	MaxDelay    string `json:"max_delay"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// SchedulerConfig controls the polling job scheduler.
type SchedulerConfig struct {
	// TickInterval is a Go duration string. Default "1m".
	TickInterval string `json:"tick_interval,omitempty"`
	// Timezone is an IANA name, e.g. "Asia/Jakarta".
	Timezone string `json:"timezone,omitempty"`
}

// ReminderConfig controls the expiry reminder jobs. Schedules use the
// scheduler grammar ("daily HH:MM", "every Nm", "hourly", "midnight",
// "weekly <weekday> HH:MM").
type ReminderConfig struct {
	H15Schedule   string `json:"h15_schedule,omitempty"`
	H1Schedule    string `json:"h1_schedule,omitempty"`
	ResetSchedule string `json:"reset_schedule,omitempty"`
	// Tolerance widens the expiry match window. Default "24h".
	Tolerance string `json:"tolerance,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./kostbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Prefer binding to localhost. A non-loopback bind requires a token or an
// explicit allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

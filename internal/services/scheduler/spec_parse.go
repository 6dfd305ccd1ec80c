package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec is a parsed schedule from the closed grammar:
//
//   - "daily HH:MM"            run once a day at the given wall time
//   - "every Nm"               run every N minutes; N must divide 60
//   - "hourly"                 run at minute 0 of every hour
//   - "midnight"               run once a day at 00:00
//   - "weekly <weekday> HH:MM" run once a week, e.g. "weekly monday 09:00"
//
// Anything else is rejected with ErrInvalidSchedule. Internally each form is
// translated to a five-field cron expression and next-run times are computed
// with robfig/cron, which handles DST transitions for us.
type Spec struct {
	Raw   string
	Cron  string
	sched cron.Schedule
}

// Next returns the first activation strictly after t.
func (sp Spec) Next(t time.Time) time.Time {
	if sp.sched == nil {
		return time.Time{}
	}
	return sp.sched.Next(t)
}

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var weekdays = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

// ParseSpec validates a schedule string against the supported grammar.
func ParseSpec(raw string) (Spec, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Spec{}, fmt.Errorf("%w: empty schedule", ErrInvalidSchedule)
	}

	var expr string
	switch {
	case s == "hourly":
		expr = "0 * * * *"

	case s == "midnight":
		expr = "0 0 * * *"

	case strings.HasPrefix(s, "daily "):
		h, m, err := parseHHMM(strings.TrimPrefix(s, "daily "))
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		expr = fmt.Sprintf("%d %d * * *", m, h)

	case strings.HasPrefix(s, "every "):
		n, err := parseEveryMinutes(strings.TrimPrefix(s, "every "))
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		if n == 60 {
			expr = "0 * * * *"
		} else {
			expr = fmt.Sprintf("*/%d * * * *", n)
		}

	case strings.HasPrefix(s, "weekly "):
		rest := strings.Fields(strings.TrimPrefix(s, "weekly "))
		if len(rest) != 2 {
			return Spec{}, fmt.Errorf("%w: weekly needs a weekday and HH:MM, got %q", ErrInvalidSchedule, raw)
		}
		dow, ok := weekdays[rest[0]]
		if !ok {
			return Spec{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, rest[0])
		}
		h, m, err := parseHHMM(rest[1])
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		expr = fmt.Sprintf("%d %d * * %d", m, h, dow)

	default:
		return Spec{}, fmt.Errorf("%w: %q (use 'daily HH:MM', 'every Nm', 'hourly', 'midnight' or 'weekly <weekday> HH:MM')", ErrInvalidSchedule, raw)
	}

	sched, err := specParser.Parse(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return Spec{Raw: strings.TrimSpace(raw), Cron: expr, sched: sched}, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// parseEveryMinutes accepts "5m", "5 minutes" or a bare "5". The interval
// must divide 60 so runs land on stable wall-clock minutes.
func parseEveryMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " minutes")
	s = strings.TrimSuffix(s, " minute")
	s = strings.TrimSuffix(s, "m")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid minute interval %q", s)
	}
	if n <= 0 || n > 60 || 60%n != 0 {
		return 0, fmt.Errorf("minute interval must divide 60, got %d", n)
	}
	return n, nil
}

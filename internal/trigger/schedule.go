package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/store"
)

// scheduleHorizon bounds forward scans so a malformed trigger can never
// spin the scheduler.
const scheduleHorizon = 10 * 365 * 24 * time.Hour

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time of day %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// step advances one occurrence from prev according to the trigger's
// recurrence pattern, in prev's location. Custom intervals count
// minutes; the calendar patterns count days, weeks, or months, with
// monthly recurrences clamping the target day to the length of the
// destination month.
func step(t store.Trigger, prev time.Time) time.Time {
	interval := t.Interval
	if interval <= 0 {
		interval = 1
	}
	switch t.Pattern {
	case store.PatternCustom:
		return prev.Add(time.Duration(interval) * time.Minute)
	case store.PatternWeekly:
		return prev.AddDate(0, 0, 7*interval)
	case store.PatternMonthly:
		target := prev.Day()
		if t.DayOfMonth != nil {
			target = *t.DayOfMonth
		}
		y, m, _ := prev.Date()
		m += time.Month(interval)
		day := target
		if max := daysIn(y, m); day > max {
			day = max
		}
		return time.Date(y, m, day, prev.Hour(), prev.Minute(), 0, 0, prev.Location())
	default: // daily steps in days
		return prev.AddDate(0, 0, interval)
	}
}

// NextFireTime computes the occurrence after prev that falls strictly
// later than now. Missed occurrences are skipped, never replayed. It
// returns nil when the trigger has run its course: one-time mode, an
// end date in the past, or nothing found within the horizon.
func NextFireTime(t store.Trigger, prev, now time.Time) *time.Time {
	if t.Mode != store.TriggerModeRecurring {
		return nil
	}
	loc := loadLocation(t.Timezone)
	next := prev.In(loc)
	limit := now.Add(scheduleHorizon)
	for !next.After(now) {
		next = step(t, next)
		if next.After(limit) {
			return nil
		}
	}
	if t.EndDate != nil && next.After(*t.EndDate) {
		return nil
	}
	return &next
}

// InitialFireTime computes where a freshly created trigger starts. A
// one-time trigger fires at its scheduled time. A recurring trigger
// anchors on its scheduled time when given, otherwise on the first
// occurrence matching its pattern after now.
func InitialFireTime(t store.Trigger, now time.Time) (*time.Time, error) {
	if t.Mode == store.TriggerModeOnce {
		if t.ScheduledTime == nil {
			return nil, fmt.Errorf("one-time trigger %q has no scheduled time", t.Name)
		}
		ft := *t.ScheduledTime
		return &ft, nil
	}

	loc := loadLocation(t.Timezone)
	var anchor time.Time
	if t.ScheduledTime != nil {
		anchor = t.ScheduledTime.In(loc)
	} else if t.Pattern == store.PatternCustom {
		// Custom intervals run relative to creation, not a wall-clock
		// time of day.
		interval := t.Interval
		if interval <= 0 {
			interval = 1
		}
		anchor = now.In(loc).Add(time.Duration(interval) * time.Minute)
	} else {
		hour, minute, err := parseTimeOfDay(t.TimeOfDay)
		if err != nil {
			return nil, err
		}
		local := now.In(loc)
		anchor = time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		switch t.Pattern {
		case store.PatternWeekly:
			if t.DayOfWeek != nil {
				for int(anchor.Weekday()) != *t.DayOfWeek {
					anchor = anchor.AddDate(0, 0, 1)
				}
			}
		case store.PatternMonthly:
			if t.DayOfMonth != nil {
				day := *t.DayOfMonth
				if max := daysIn(anchor.Year(), anchor.Month()); day > max {
					day = max
				}
				anchor = time.Date(anchor.Year(), anchor.Month(), day, hour, minute, 0, 0, loc)
			}
		}
	}

	if anchor.After(now) {
		if t.EndDate != nil && anchor.After(*t.EndDate) {
			return nil, nil
		}
		return &anchor, nil
	}
	return NextFireTime(t, anchor, now), nil
}

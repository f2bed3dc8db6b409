package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/wheelibin/lumalite/internal/models"
)

// NextRun returns the next time the schedule fires strictly after now, in now's location.
// ok is false for a once schedule in the past and for schedules that can't be parsed.
func NextRun(sch models.SceneSchedule, now time.Time, sun SunTimes) (time.Time, bool) {
	today := startOfDay(now)

	switch sch.Type {
	case models.ScheduleOnce:
		day, ok := parseDate(sch.Date, now.Location())
		if !ok {
			return time.Time{}, false
		}
		target, ok := timeOn(sch.Time, day, sun)
		if !ok || !target.After(now) {
			return time.Time{}, false
		}
		return target, true

	case models.ScheduleDaily:
		return firstAfter(sch.Time, today, 1, now, sun)

	case models.ScheduleWeekly:
		dayOfWeek := 0
		if sch.DayOfWeek != nil {
			dayOfWeek = *sch.DayOfWeek
		}
		delta := ((dayOfWeek-int(now.Weekday()))%7 + 7) % 7
		return firstAfter(sch.Time, addDays(today, delta), 7, now, sun)
	}

	return time.Time{}, false
}

// firstAfter returns the time on day, or on day+step when that isn't after now
func firstAfter(hm string, day time.Time, step int, now time.Time, sun SunTimes) (time.Time, bool) {
	target, ok := timeOn(hm, day, sun)
	if !ok {
		return time.Time{}, false
	}
	if target.After(now) {
		return target, true
	}
	return timeOn(hm, addDays(day, step), sun)
}

// timeOn resolves a schedule time ("HH:MM", "sunrise", "sunset-30m", ...) on the given day
func timeOn(expr string, day time.Time, sun SunTimes) (time.Time, bool) {
	expr = strings.TrimSpace(expr)
	for _, event := range []string{"sunrise", "sunset"} {
		if !strings.HasPrefix(expr, event) {
			continue
		}
		if sun == nil {
			return time.Time{}, false
		}
		var offset time.Duration
		if rest := expr[len(event):]; rest != "" {
			d, err := time.ParseDuration(rest)
			if err != nil {
				return time.Time{}, false
			}
			offset = d
		}
		rise, set, ok := sun(day)
		if !ok {
			return time.Time{}, false
		}
		if event == "sunrise" {
			return rise.Add(offset).Truncate(time.Minute), true
		}
		return set.Add(offset).Truncate(time.Minute), true
	}
	return timeOnDay(expr, day)
}

// timeOnDay returns the "HH:MM" time on the day of base
func timeOnDay(hm string, base time.Time) (time.Time, bool) {
	timeHM := strings.Split(hm, ":")
	if len(timeHM) != 2 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(timeHM[0]))
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	mins, err := strconv.Atoi(strings.TrimSpace(timeHM[1]))
	if err != nil || mins < 0 || mins > 59 {
		return time.Time{}, false
	}
	return time.Date(base.Year(), base.Month(), base.Day(), hour, mins, 0, 0, base.Location()), true
}

// parseDate accepts "YYYY-MM-DD", with or without zero padding
func parseDate(date string, loc *time.Location) (time.Time, bool) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v <= 0 {
			return time.Time{}, false
		}
		values[i] = v
	}
	return time.Date(values[0], time.Month(values[1]), values[2], 0, 0, 0, 0, loc), true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// addDays moves by calendar days, so a DST change doesn't shift the result
func addDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

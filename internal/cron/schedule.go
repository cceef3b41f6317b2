package cron

import (
	"fmt"
	"time"
)

// Schedule reports when a job should next fire. All schedules run in UTC.
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// Daily fires once a day at hour:minute UTC.
func Daily(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// Monthly fires on the given day of each month at hour:minute UTC. Days past
// the end of a short month clamp to its last day.
func Monthly(day, hour, minute int) Schedule {
	if day < 1 {
		day = 1
	}
	return monthlySchedule{day: day, hour: hour, minute: minute}
}

// Every fires on fixed multiples of the interval since the Unix epoch.
func Every(interval time.Duration) Schedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return everySchedule{interval: interval}
}

type dailySchedule struct {
	hour, minute int
}

func (d dailySchedule) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), d.hour, d.minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d dailySchedule) String() string {
	return fmt.Sprintf("daily %02d:%02d UTC", d.hour, d.minute)
}

type monthlySchedule struct {
	day, hour, minute int
}

func (m monthlySchedule) Next(after time.Time) time.Time {
	after = after.UTC()
	next := m.in(after.Year(), after.Month())
	if !next.After(after) {
		first := time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		next = m.in(first.Year(), first.Month())
	}
	return next
}

func (m monthlySchedule) in(year int, month time.Month) time.Time {
	day := m.day
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, m.hour, m.minute, 0, 0, time.UTC)
}

func (m monthlySchedule) String() string {
	return fmt.Sprintf("monthly day %d %02d:%02d UTC", m.day, m.hour, m.minute)
}

type everySchedule struct {
	interval time.Duration
}

func (e everySchedule) Next(after time.Time) time.Time {
	next := after.UTC().Truncate(e.interval).Add(e.interval)
	return next
}

func (e everySchedule) String() string {
	return "every " + e.interval.String()
}

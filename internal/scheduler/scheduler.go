package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Task is a unit of periodic work
type Task func(ctx context.Context)

// Scheduler runs tasks on simple cron schedules
type Scheduler struct {
	now    func() time.Time
	wg     sync.WaitGroup
	cancel context.CancelFunc
	ctx    context.Context
}

// NewScheduler creates a new scheduler bound to ctx. Every task stops when ctx
// is done or Stop is called.
func NewScheduler(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule parses a cron expression and starts the task.
// Supports simple cron format: "minute hour day month weekday"
// Examples: "0 9 * * 1" = Monday 9 AM, "0 8 * * *" = Daily 8 AM, "*/5 * * * *" = Every 5 minutes
func (s *Scheduler) Schedule(cronExpr, taskName string, task Task) error {
	next, err := parseCron(cronExpr)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(next, taskName, task)
	}()
	return nil
}

// Stop cancels every task and waits for running ones to return
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(next nextFunc, taskName string, task Task) {
	for {
		now := s.now()
		at := next(now)

		slog.Info("Next task scheduled", "task", taskName, "next_run", at.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(at.Sub(now))
		select {
		case <-timer.C:
			slog.Info("Running scheduled task", "task", taskName)
			task(s.ctx)
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextFunc returns the first run time strictly after from
type nextFunc func(from time.Time) time.Time

// parseCron supports minute intervals, hourly intervals at a minute, and daily
// or weekly runs at a fixed time. Day and month fields are ignored.
func parseCron(cronExpr string) (nextFunc, error) {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	if strings.HasPrefix(parts[0], "*/") {
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return nil, fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		return func(from time.Time) time.Time {
			return nextMinuteInterval(from, interval)
		}, nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	if strings.HasPrefix(parts[1], "*/") {
		interval, err := strconv.Atoi(parts[1][2:])
		if err != nil || interval < 1 || interval > 23 {
			return nil, fmt.Errorf("invalid hour interval in cron: %s", parts[1])
		}
		return func(from time.Time) time.Time {
			return nextHourlyInterval(from, interval, minute)
		}, nil
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	if parts[4] == "*" {
		return func(from time.Time) time.Time {
			return nextDailyRun(from, hour, minute)
		}, nil
	}

	weekday, err := strconv.Atoi(parts[4])
	if err != nil || weekday < 0 || weekday > 6 {
		return nil, fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
	}
	return func(from time.Time) time.Time {
		return nextWeekday(from, time.Weekday(weekday), hour, minute)
	}, nil
}

// nextMinuteInterval returns the next minute divisible by interval
func nextMinuteInterval(from time.Time, interval int) time.Time {
	next := from.Truncate(time.Minute).Add(time.Minute)
	for next.Minute()%interval != 0 {
		next = next.Add(time.Minute)
	}
	return next
}

// nextHourlyInterval calculates the next run time for hourly intervals
func nextHourlyInterval(from time.Time, hourInterval, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), minute, 0, 0, from.Location())

	if !next.After(from) {
		next = next.Add(time.Hour)
	}

	for next.Hour()%hourInterval != 0 {
		next = next.Add(time.Hour)
	}

	return next
}

// nextWeekday calculates the next occurrence of a specific weekday and time
func nextWeekday(from time.Time, weekday time.Weekday, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	daysUntil := int(weekday - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}
	next = next.AddDate(0, 0, daysUntil)

	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

// nextDailyRun calculates the next daily run time
func nextDailyRun(from time.Time, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// StreakSource answers whether the user practiced and for how long in a row.
type StreakSource interface {
	ActiveOn(ctx context.Context, userKey string, day time.Time) (bool, error)
	LocalStreak(ctx context.Context, userKey string, today time.Time) (int, error)
}

// ReminderOption configures the reminder.
type ReminderOption func(*Reminder)

// WithHour sets the local hour (0-23) at which the nudge is checked.
func WithHour(h int) ReminderOption {
	return func(r *Reminder) {
		if h >= 0 && h <= 23 {
			r.hour = h
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ReminderOption {
	return func(r *Reminder) {
		r.now = now
	}
}

// Reminder nudges the user once a day when they have not practiced yet.
type Reminder struct {
	ledger   StreakSource
	notifier domain.Notifier
	userKey  func() string
	log      *logger.Logger
	hour     int
	now      func() time.Time

	scheduler *gocron.Scheduler
	ctx       context.Context
}

// NewReminder creates a daily reminder backed by the activity ledger.
func NewReminder(ledger StreakSource, notifier domain.Notifier, userKey func() string, log *logger.Logger, opts ...ReminderOption) *Reminder {
	r := &Reminder{
		ledger:   ledger,
		notifier: notifier,
		userKey:  userKey,
		log:      log,
		hour:     19,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules the daily check. Non-blocking.
func (r *Reminder) Start(ctx context.Context) error {
	r.ctx = ctx
	r.scheduler = gocron.NewScheduler(time.Local)
	if _, err := r.scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", r.hour)).Do(r.run); err != nil {
		return fmt.Errorf("timer: scheduling reminder: %w", err)
	}
	r.scheduler.StartAsync()
	r.log.Info("practice reminder scheduled daily at %02d:00", r.hour)
	return nil
}

// Stop cancels the schedule.
func (r *Reminder) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Reminder) run() {
	if err := r.Check(r.ctx); err != nil {
		r.log.Error("reminder: %v", err)
	}
}

// Check sends the nudge unless the user already practiced today.
func (r *Reminder) Check(ctx context.Context) error {
	user := r.userKey()
	today := r.now()

	active, err := r.ledger.ActiveOn(ctx, user, today)
	if err != nil {
		return fmt.Errorf("checking today's activity: %w", err)
	}
	if active {
		r.log.Debug("reminder: %s already practiced today", user)
		return nil
	}

	streak, err := r.ledger.LocalStreak(ctx, user, today)
	if err != nil {
		return fmt.Errorf("reading streak: %w", err)
	}
	return r.notifier.Notify(ctx, reminderMessage(streak))
}

func reminderMessage(streak int) string {
	if streak > 0 {
		return fmt.Sprintf("Keep your %d-day streak alive. A few minutes of speaking practice is enough.", streak)
	}
	return "Time for a quick speaking practice. Start a new streak today."
}

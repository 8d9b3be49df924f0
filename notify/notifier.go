package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalert/db"
	"catalert/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// ReminderStore is the persistence surface the notifier sweeps.
// *db.CatAlertDB satisfies it.
type ReminderStore interface {
	ListEnabledReminders(ctx context.Context) ([]models.Reminder, error)
	ActivityExistsFor(ctx context.Context, reminderID uuid.UUID, scheduledTime time.Time) (bool, error)
	CreateActivity(ctx context.Context, activity *models.ActivityRecord) error
	MarkReminderTriggered(ctx context.Context, id uuid.UUID, at time.Time) error
	ExpireOverdueActivities(ctx context.Context, cutoff time.Time) (int64, error)
	GetCatAnyStatus(ctx context.Context, id uuid.UUID) (*models.Cat, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier turns due reminders into pending activity records once a
// minute and expires the ones nobody acted on. When a telegram bot is
// configured it also pings the owner.
type Notifier struct {
	store       ReminderStore
	bot         *tele.Bot
	scheduler   gocron.Scheduler
	expiryAfter time.Duration
}

func New(store ReminderStore, bot *tele.Bot, expiryAfter time.Duration) (*Notifier, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Notifier{
		store:       store,
		bot:         bot,
		scheduler:   scheduler,
		expiryAfter: expiryAfter,
	}, nil
}

func (n *Notifier) Start(ctx context.Context) error {
	_, err := n.scheduler.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			n.fireDueReminders(ctx, time.Now().UTC())
			n.expireStaleActivities(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register reminder job: %w", err)
	}
	n.scheduler.Start()
	return nil
}

func (n *Notifier) Stop() error {
	return n.scheduler.Shutdown()
}

// fireDueReminders creates a pending activity for every reminder slot
// matching the current wall-clock minute. The existence check keeps a
// slow tick from double-firing the same slot.
func (n *Notifier) fireDueReminders(ctx context.Context, now time.Time) {
	reminders, err := n.store.ListEnabledReminders(ctx)
	if err != nil {
		slog.Error("failed to list enabled reminders", "error", err)
		return
	}

	for _, reminder := range reminders {
		for _, slot := range reminder.ScheduledTimes {
			if !slotDue(reminder.Frequency, slot, now) {
				continue
			}
			scheduledTime := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, time.UTC)

			exists, err := n.store.ActivityExistsFor(ctx, reminder.ID, scheduledTime)
			if err != nil {
				slog.Error("failed to check existing activity", "reminder_id", reminder.ID, "error", err)
				continue
			}
			if exists {
				continue
			}

			activity := &models.ActivityRecord{
				ReminderID:    reminder.ID,
				CatID:         reminder.CatID,
				Type:          reminder.Type,
				ScheduledTime: scheduledTime,
				Status:        models.ActivityStatusPending,
			}
			if err := n.store.CreateActivity(ctx, activity); err != nil {
				slog.Error("failed to create activity for reminder", "reminder_id", reminder.ID, "error", err)
				continue
			}
			if err := n.store.MarkReminderTriggered(ctx, reminder.ID, now); err != nil {
				slog.Error("failed to mark reminder triggered", "reminder_id", reminder.ID, "error", err)
			}
			slog.Info("reminder fired", "reminder_id", reminder.ID, "cat_id", reminder.CatID, "type", reminder.Type)

			n.sendAlert(ctx, reminder)
		}
	}
}

// slotDue reports whether the slot matches the current UTC minute.
// Weekly schedules additionally honor day_of_week.
func slotDue(frequency models.Frequency, slot models.ReminderTime, now time.Time) bool {
	if !slot.IsEnabled {
		return false
	}
	if slot.Hour != now.Hour() || slot.Minute != now.Minute() {
		return false
	}
	if frequency == models.FrequencyWeekly && slot.DayOfWeek != nil && *slot.DayOfWeek != int(now.Weekday()) {
		return false
	}
	return true
}

func (n *Notifier) expireStaleActivities(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-n.expiryAfter)
	expired, err := n.store.ExpireOverdueActivities(ctx, cutoff)
	if err != nil {
		slog.Error("failed to expire stale activities", "error", err)
		return
	}
	if expired > 0 {
		slog.Info("expired stale activities", "count", expired)
	}
}

// sendAlert notifies the cat's owner over telegram, when both the bot
// and the owner's chat are configured.
func (n *Notifier) sendAlert(ctx context.Context, reminder models.Reminder) {
	if n.bot == nil {
		return
	}

	cat, err := n.store.GetCatAnyStatus(ctx, reminder.CatID)
	if err != nil {
		slog.Error("failed to load cat for alert", "cat_id", reminder.CatID, "error", err)
		return
	}
	owner, err := n.store.GetUser(ctx, cat.OwnerID)
	if err != nil {
		slog.Error("failed to load owner for alert", "owner_id", cat.OwnerID, "error", err)
		return
	}
	if !owner.NotificationEnabled || owner.TelegramChatID == 0 {
		return
	}

	message := fmt.Sprintf("🐱 *%s*\n\n%s needs you: %s", reminder.Title, cat.Name, reminder.Type.Display())
	if reminder.Description != "" {
		message += "\n\n" + reminder.Description
	}
	if _, err := n.bot.Send(&tele.Chat{ID: owner.TelegramChatID}, message, tele.ModeMarkdown); err != nil {
		slog.Error("failed to send reminder alert", "chat_id", owner.TelegramChatID, "error", err)
	}
}

var _ ReminderStore = (*db.CatAlertDB)(nil)

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalert/apperrors"
	"catalert/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type CatAlertDB struct {
	db *gorm.DB
}

func NewCatAlertDB(connectionString string) (*CatAlertDB, error) {
	return Open(postgres.Open(connectionString))
}

// Open connects through an arbitrary gorm dialector and migrates the
// schema. Production code goes through NewCatAlertDB; tests open an
// in-memory sqlite database here.
func Open(dialector gorm.Dialector) (*CatAlertDB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	err = gdb.AutoMigrate(
		&models.User{},
		&models.Cat{},
		&models.Reminder{},
		&models.ReminderTime{},
		&models.ActivityRecord{},
		&models.HealthRecord{},
		&models.AIInteraction{},
		&models.AIInsight{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &CatAlertDB{db: gdb}, nil
}

// Ping verifies database connectivity, for health endpoints.
func (db *CatAlertDB) Ping(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ---- users ----

func (db *CatAlertDB) CreateUser(ctx context.Context, user *models.User) error {
	result := db.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		return fmt.Errorf("failed to create user: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := db.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user", id.String())
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return &user, nil
}

func (db *CatAlertDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := db.db.WithContext(ctx).First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user", username)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", result.Error)
	}
	return &user, nil
}

func (db *CatAlertDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := db.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", result.Error)
	}
	return &user, nil
}

func (db *CatAlertDB) UpdateUser(ctx context.Context, user *models.User) error {
	result := db.db.WithContext(ctx).Save(user)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	result := db.db.WithContext(ctx).Order("created_at ASC").Find(&users)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users: %w", result.Error)
	}
	return users, nil
}

// ---- cats ----

func (db *CatAlertDB) CreateCat(ctx context.Context, cat *models.Cat) error {
	result := db.db.WithContext(ctx).Create(cat)
	if result.Error != nil {
		return fmt.Errorf("failed to create cat: %w", result.Error)
	}
	return nil
}

// GetCat returns only active cats; soft-deleted rows are invisible here.
func (db *CatAlertDB) GetCat(ctx context.Context, id uuid.UUID) (*models.Cat, error) {
	var cat models.Cat
	result := db.db.WithContext(ctx).First(&cat, "id = ? AND is_active = ?", id, true)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("cat", id.String())
		}
		return nil, fmt.Errorf("failed to get cat: %w", result.Error)
	}
	return &cat, nil
}

// GetCatAnyStatus ignores the soft-delete flag, for audit access.
func (db *CatAlertDB) GetCatAnyStatus(ctx context.Context, id uuid.UUID) (*models.Cat, error) {
	var cat models.Cat
	result := db.db.WithContext(ctx).First(&cat, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("cat", id.String())
		}
		return nil, fmt.Errorf("failed to get cat: %w", result.Error)
	}
	return &cat, nil
}

func (db *CatAlertDB) ListCats(ctx context.Context, ownerID *uuid.UUID, offset, limit int) ([]models.Cat, error) {
	var cats []models.Cat
	query := db.db.WithContext(ctx).Where("is_active = ?", true)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Order("created_at ASC").Find(&cats)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list cats: %w", result.Error)
	}
	return cats, nil
}

func (db *CatAlertDB) UpdateCat(ctx context.Context, cat *models.Cat) error {
	result := db.db.WithContext(ctx).Save(cat)
	if result.Error != nil {
		return fmt.Errorf("failed to update cat: %w", result.Error)
	}
	return nil
}

// SoftDeleteCat flips is_active; the row stays for historical activity
// and health data.
func (db *CatAlertDB) SoftDeleteCat(ctx context.Context, id uuid.UUID) error {
	result := db.db.WithContext(ctx).Model(&models.Cat{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to delete cat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("cat", id.String())
	}
	return nil
}

// ---- reminders ----

// CreateReminder persists the reminder and its scheduled times in one
// transaction, validating the target cat first.
func (db *CatAlertDB) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Cat
		if err := tx.First(&cat, "id = ? AND is_active = ?", reminder.CatID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("cat", reminder.CatID.String())
			}
			return fmt.Errorf("failed to validate cat: %w", err)
		}
		if err := tx.Create(reminder).Error; err != nil {
			return fmt.Errorf("failed to create reminder: %w", err)
		}
		return nil
	})
	return err
}

func (db *CatAlertDB) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	result := db.db.WithContext(ctx).Preload("ScheduledTimes").First(&reminder, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("reminder", id.String())
		}
		return nil, fmt.Errorf("failed to get reminder: %w", result.Error)
	}
	return &reminder, nil
}

func (db *CatAlertDB) ListReminders(ctx context.Context, catID uuid.UUID) ([]models.Reminder, error) {
	var reminders []models.Reminder
	result := db.db.WithContext(ctx).Preload("ScheduledTimes").
		Where("cat_id = ?", catID).
		Order("created_at ASC").
		Find(&reminders)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", result.Error)
	}
	return reminders, nil
}

// ListEnabledReminders returns every enabled reminder for active cats,
// scheduled times preloaded. The scheduler sweeps this set each tick.
func (db *CatAlertDB) ListEnabledReminders(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	result := db.db.WithContext(ctx).Preload("ScheduledTimes").
		Joins("JOIN cats ON cats.id = reminders.cat_id AND cats.is_active = ?", true).
		Where("reminders.is_enabled = ?", true).
		Find(&reminders)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list enabled reminders: %w", result.Error)
	}
	return reminders, nil
}

// UpdateReminder saves the reminder fields and, when times is non-nil,
// replaces the schedule wholesale inside the same transaction.
func (db *CatAlertDB) UpdateReminder(ctx context.Context, reminder *models.Reminder, times []models.ReminderTime) error {
	return db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("ScheduledTimes").Save(reminder).Error; err != nil {
			return fmt.Errorf("failed to update reminder: %w", err)
		}
		if times == nil {
			return nil
		}
		if err := tx.Where("reminder_id = ?", reminder.ID).Delete(&models.ReminderTime{}).Error; err != nil {
			return fmt.Errorf("failed to clear reminder times: %w", err)
		}
		for i := range times {
			times[i].ID = uuid.Nil
			times[i].ReminderID = reminder.ID
		}
		if len(times) > 0 {
			if err := tx.Create(&times).Error; err != nil {
				return fmt.Errorf("failed to create reminder times: %w", err)
			}
		}
		reminder.ScheduledTimes = times
		return nil
	})
}

func (db *CatAlertDB) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	return db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reminder_id = ?", id).Delete(&models.ReminderTime{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminder times: %w", err)
		}
		result := tx.Delete(&models.Reminder{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete reminder: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFound("reminder", id.String())
		}
		return nil
	})
}

func (db *CatAlertDB) MarkReminderTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := db.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", id).
		Update("last_triggered", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder triggered: %w", result.Error)
	}
	return nil
}

// ---- activity records ----

func (db *CatAlertDB) CreateActivity(ctx context.Context, activity *models.ActivityRecord) error {
	result := db.db.WithContext(ctx).Create(activity)
	if result.Error != nil {
		return fmt.Errorf("failed to create activity: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) GetActivity(ctx context.Context, id uuid.UUID) (*models.ActivityRecord, error) {
	var activity models.ActivityRecord
	result := db.db.WithContext(ctx).First(&activity, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("activity", id.String())
		}
		return nil, fmt.Errorf("failed to get activity: %w", result.Error)
	}
	return &activity, nil
}

// ActivityFilter narrows activity queries. Since/Until bound the
// scheduled time; CreatedSince bounds the record's creation time, which
// is what "recent activity" windows go by.
type ActivityFilter struct {
	Status       *models.ActivityStatus
	Since        *time.Time
	Until        *time.Time
	CreatedSince *time.Time
	Limit        int
}

func (db *CatAlertDB) ListActivities(ctx context.Context, catID uuid.UUID, filter ActivityFilter) ([]models.ActivityRecord, error) {
	var activities []models.ActivityRecord
	query := db.db.WithContext(ctx).Where("cat_id = ?", catID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Since != nil {
		query = query.Where("scheduled_time >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("scheduled_time < ?", *filter.Until)
	}
	if filter.CreatedSince != nil {
		query = query.Where("created_at >= ?", *filter.CreatedSince)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	result := query.Order("scheduled_time DESC").Find(&activities)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list activities: %w", result.Error)
	}
	return activities, nil
}

// ActivityUpdate carries the mutable fields of an activity. Nil or
// empty fields are left untouched.
type ActivityUpdate struct {
	Status         models.ActivityStatus
	Notes          string
	ActualDuration *int
	QualityRating  *int
	CatBehavior    string
}

// UpdateActivity applies an update, stamping complete_time on the first
// transition to completed. Terminal activities stay put.
func (db *CatAlertDB) UpdateActivity(ctx context.Context, id uuid.UUID, update ActivityUpdate) (*models.ActivityRecord, error) {
	var activity models.ActivityRecord
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&activity, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("activity", id.String())
			}
			return fmt.Errorf("failed to get activity: %w", err)
		}
		if activity.Status.Terminal() {
			return apperrors.NewValidation(fmt.Sprintf("activity is already %s", activity.Status), nil)
		}
		if update.Status != "" {
			activity.Status = update.Status
		}
		if update.Notes != "" {
			activity.Notes = update.Notes
		}
		if update.ActualDuration != nil {
			activity.ActualDuration = update.ActualDuration
		}
		if update.QualityRating != nil {
			activity.QualityRating = update.QualityRating
		}
		if update.CatBehavior != "" {
			activity.CatBehavior = update.CatBehavior
		}
		if activity.Status == models.ActivityStatusCompleted && activity.CompleteTime == nil {
			now := time.Now()
			activity.CompleteTime = &now
		}
		if err := tx.Save(&activity).Error; err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ActivityExistsFor guards the scheduler against double-creating the
// same occurrence of a reminder.
func (db *CatAlertDB) ActivityExistsFor(ctx context.Context, reminderID uuid.UUID, scheduledTime time.Time) (bool, error) {
	var count int64
	result := db.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Where("reminder_id = ? AND scheduled_time = ?", reminderID, scheduledTime).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check activity existence: %w", result.Error)
	}
	return count > 0, nil
}

// ExpireOverdueActivities marks pending activities whose scheduled time
// is older than the cutoff as expired. Returns the number flipped.
func (db *CatAlertDB) ExpireOverdueActivities(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Where("status = ? AND scheduled_time < ?", models.ActivityStatusPending, cutoff).
		Update("status", models.ActivityStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire activities: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CompletionStats reports completed vs total activities for a cat since
// the given time.
func (db *CatAlertDB) CompletionStats(ctx context.Context, catID uuid.UUID, since time.Time) (completed, total int64, err error) {
	base := db.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Where("cat_id = ? AND scheduled_time >= ?", catID, since)
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count activities: %w", err)
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.ActivityStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count completed activities: %w", err)
	}
	return completed, total, nil
}

// ---- health records ----

func (db *CatAlertDB) CreateHealthRecord(ctx context.Context, record *models.HealthRecord) error {
	result := db.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to create health record: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) GetHealthRecord(ctx context.Context, id uuid.UUID) (*models.HealthRecord, error) {
	var record models.HealthRecord
	result := db.db.WithContext(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("health record", id.String())
		}
		return nil, fmt.Errorf("failed to get health record: %w", result.Error)
	}
	return &record, nil
}

type HealthFilter struct {
	RecordType string
	Since      *time.Time
	Limit      int
}

func (db *CatAlertDB) ListHealthRecords(ctx context.Context, catID uuid.UUID, filter HealthFilter) ([]models.HealthRecord, error) {
	var records []models.HealthRecord
	query := db.db.WithContext(ctx).Where("cat_id = ?", catID)
	if filter.RecordType != "" {
		query = query.Where("record_type = ?", filter.RecordType)
	}
	if filter.Since != nil {
		query = query.Where("recorded_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	result := query.Order("recorded_at DESC").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list health records: %w", result.Error)
	}
	return records, nil
}

func (db *CatAlertDB) UpdateHealthRecord(ctx context.Context, record *models.HealthRecord) error {
	result := db.db.WithContext(ctx).Save(record)
	if result.Error != nil {
		return fmt.Errorf("failed to update health record: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) DeleteHealthRecord(ctx context.Context, id uuid.UUID) error {
	result := db.db.WithContext(ctx).Delete(&models.HealthRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete health record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("health record", id.String())
	}
	return nil
}

// WeightHistory returns weight measurements oldest first, the order the
// trend calculator expects.
func (db *CatAlertDB) WeightHistory(ctx context.Context, catID uuid.UUID, since time.Time) ([]models.HealthRecord, error) {
	var records []models.HealthRecord
	result := db.db.WithContext(ctx).
		Where("cat_id = ? AND recorded_at >= ? AND weight IS NOT NULL", catID, since).
		Order("recorded_at ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get weight history: %w", result.Error)
	}
	return records, nil
}

// ---- ai interactions ----

func (db *CatAlertDB) CreateInteraction(ctx context.Context, interaction *models.AIInteraction) error {
	result := db.db.WithContext(ctx).Create(interaction)
	if result.Error != nil {
		return fmt.Errorf("failed to create interaction: %w", result.Error)
	}
	return nil
}

func (db *CatAlertDB) ListInteractions(ctx context.Context, userID uuid.UUID, sessionID string, limit int) ([]models.AIInteraction, error) {
	var interactions []models.AIInteraction
	query := db.db.WithContext(ctx).Where("user_id = ?", userID)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Order("created_at DESC").Find(&interactions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", result.Error)
	}
	return interactions, nil
}

// ---- ai insights ----

func (db *CatAlertDB) CreateInsight(ctx context.Context, insight *models.AIInsight) error {
	result := db.db.WithContext(ctx).Create(insight)
	if result.Error != nil {
		return fmt.Errorf("failed to create insight: %w", result.Error)
	}
	return nil
}

// ReplaceDailyInsights swaps out a cat's current daily insights for a
// fresh batch atomically. A failed insert rolls everything back so the
// old set survives.
func (db *CatAlertDB) ReplaceDailyInsights(ctx context.Context, catID uuid.UUID, insights []models.AIInsight) error {
	return db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cat_id = ? AND insight_type = ?", catID, "daily").
			Delete(&models.AIInsight{}).Error; err != nil {
			return fmt.Errorf("failed to clear daily insights: %w", err)
		}
		for i := range insights {
			insights[i].CatID = catID
			insights[i].InsightType = "daily"
		}
		if len(insights) > 0 {
			if err := tx.Create(&insights).Error; err != nil {
				return fmt.Errorf("failed to create insights: %w", err)
			}
		}
		return nil
	})
}

func (db *CatAlertDB) ListInsights(ctx context.Context, catID uuid.UUID, includeExpired bool) ([]models.AIInsight, error) {
	var insights []models.AIInsight
	query := db.db.WithContext(ctx).Where("cat_id = ?", catID)
	if !includeExpired {
		query = query.Where("expires_at IS NULL OR expires_at > ?", time.Now())
	}
	result := query.Order("generated_at DESC").Find(&insights)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list insights: %w", result.Error)
	}
	return insights, nil
}

func (db *CatAlertDB) MarkInsightRead(ctx context.Context, id uuid.UUID) error {
	result := db.db.WithContext(ctx).Model(&models.AIInsight{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark insight read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("insight", id.String())
	}
	return nil
}

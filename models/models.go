package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username       string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"size:255;not null"`
	FullName       string    `json:"full_name" gorm:"size:100"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	IsVerified     bool      `json:"is_verified" gorm:"default:false"`

	Timezone            string `json:"timezone" gorm:"size:50;default:'UTC'"`
	Language            string `json:"language" gorm:"size:10;default:'zh-CN'"`
	NotificationEnabled bool   `json:"notification_enabled" gorm:"default:true"`
	AIAgentEnabled      bool   `json:"ai_agent_enabled" gorm:"default:true"`
	TelegramChatID      int64  `json:"telegram_chat_id"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`

	Cats []Cat `json:"cats,omitempty" gorm:"foreignKey:OwnerID"`
}

type Cat struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID uuid.UUID `json:"owner_id" gorm:"type:uuid;index;not null"`

	Name        string     `json:"name" gorm:"size:100;not null"`
	Gender      string     `json:"gender" gorm:"size:10"`
	Breed       string     `json:"breed" gorm:"size:100"`
	Description string     `json:"description" gorm:"type:text"`
	BirthDate   *time.Time `json:"birth_date"`
	Weight      *float64   `json:"weight"`
	Color       string     `json:"color" gorm:"size:50"`
	MicrochipID string     `json:"microchip_id" gorm:"size:50"`

	HealthCondition    string         `json:"health_condition" gorm:"size:20;default:'good'"`
	MedicalNotes       string         `json:"medical_notes" gorm:"type:text"`
	VaccinationRecords datatypes.JSON `json:"vaccination_records,omitempty"`
	AvatarURL          string         `json:"avatar_url" gorm:"size:500"`

	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner         User             `json:"-" gorm:"foreignKey:OwnerID"`
	Reminders     []Reminder       `json:"reminders,omitempty" gorm:"foreignKey:CatID"`
	Activities    []ActivityRecord `json:"activities,omitempty" gorm:"foreignKey:CatID"`
	HealthRecords []HealthRecord   `json:"health_records,omitempty" gorm:"foreignKey:CatID"`
}

// AgeInYears is nil when the birth date is unknown.
func (c *Cat) AgeInYears() *int {
	if c.BirthDate == nil {
		return nil
	}
	years := time.Now().Year() - c.BirthDate.Year()
	return &years
}

func (c *Cat) AgeInMonths() *int {
	if c.BirthDate == nil {
		return nil
	}
	now := time.Now()
	months := (now.Year()-c.BirthDate.Year())*12 + int(now.Month()) - int(c.BirthDate.Month())
	return &months
}

type Reminder struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CatID uuid.UUID `json:"cat_id" gorm:"type:uuid;index;not null"`

	Title       string    `json:"title" gorm:"size:200;not null"`
	Type        CareType  `json:"type" gorm:"size:20;not null"`
	Frequency   Frequency `json:"frequency" gorm:"size:20;default:'daily'"`
	IsEnabled   bool      `json:"is_enabled" gorm:"default:true"`
	Description string    `json:"description" gorm:"type:text"`
	Priority    int       `json:"priority" gorm:"default:1"`

	EstimatedDuration int            `json:"estimated_duration"`
	AIOptimized       bool           `json:"ai_optimized" gorm:"default:false"`
	OptimalTimes      datatypes.JSON `json:"optimal_times,omitempty"`
	CompletionRate    float64        `json:"completion_rate" gorm:"default:0"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastTriggered *time.Time `json:"last_triggered"`

	Cat            Cat              `json:"-" gorm:"foreignKey:CatID"`
	ScheduledTimes []ReminderTime   `json:"scheduled_times" gorm:"foreignKey:ReminderID;constraint:OnDelete:CASCADE"`
	Activities     []ActivityRecord `json:"-" gorm:"foreignKey:ReminderID"`
}

type ReminderTime struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ReminderID uuid.UUID `json:"reminder_id" gorm:"type:uuid;index;not null"`
	Hour       int       `json:"hour" gorm:"not null"`
	Minute     int       `json:"minute" gorm:"not null"`
	DayOfWeek  *int      `json:"day_of_week"`
	IsEnabled  bool      `json:"is_enabled" gorm:"default:true"`
}

type ActivityRecord struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ReminderID uuid.UUID `json:"reminder_id" gorm:"type:uuid;index;not null"`
	CatID      uuid.UUID `json:"cat_id" gorm:"type:uuid;index;not null"`

	Type          CareType       `json:"type" gorm:"size:20;not null"`
	ScheduledTime time.Time      `json:"scheduled_time" gorm:"index;not null"`
	CompleteTime  *time.Time     `json:"complete_time"`
	Status        ActivityStatus `json:"status" gorm:"size:20;default:'pending'"`

	ActualDuration *int   `json:"actual_duration"`
	Notes          string `json:"notes" gorm:"type:text"`
	QualityRating  *int   `json:"quality_rating"`
	CatBehavior    string `json:"cat_behavior" gorm:"size:100"`

	AIAnalysis       datatypes.JSON `json:"ai_analysis,omitempty"`
	AnomalyDetected  bool           `json:"anomaly_detected" gorm:"default:false"`
	HealthIndicators datatypes.JSON `json:"health_indicators,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Reminder Reminder `json:"-" gorm:"foreignKey:ReminderID"`
	Cat      Cat      `json:"-" gorm:"foreignKey:CatID"`
}

func (a *ActivityRecord) IsOverdue() bool {
	return a.Status == ActivityStatusPending && time.Now().After(a.ScheduledTime)
}

type HealthRecord struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CatID uuid.UUID `json:"cat_id" gorm:"type:uuid;index;not null"`

	RecordType string   `json:"record_type" gorm:"size:50;not null"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit" gorm:"size:20"`
	Notes      string   `json:"notes" gorm:"type:text"`

	AppetiteLevel *int   `json:"appetite_level"`
	ActivityLevel *int   `json:"activity_level"`
	Mood          string `json:"mood" gorm:"size:50"`
	EnergyLevel   *int   `json:"energy_level"`

	Weight             *float64 `json:"weight"`
	BodyConditionScore *int     `json:"body_condition_score"`
	CoatCondition      string   `json:"coat_condition" gorm:"size:50"`
	EyeCondition       string   `json:"eye_condition" gorm:"size:50"`
	EarCondition       string   `json:"ear_condition" gorm:"size:50"`

	BehaviorNotes    string         `json:"behavior_notes" gorm:"type:text"`
	UnusualBehaviors datatypes.JSON `json:"unusual_behaviors,omitempty"`

	AIHealthScore     *float64       `json:"ai_health_score"`
	AIRiskFactors     datatypes.JSON `json:"ai_risk_factors,omitempty"`
	AIRecommendations datatypes.JSON `json:"ai_recommendations,omitempty"`
	AnomalyDetected   bool           `json:"anomaly_detected" gorm:"default:false"`

	RecordedAt time.Time `json:"recorded_at" gorm:"index;not null"`
	RecordedBy string    `json:"recorded_by" gorm:"size:100"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time `json:"updated_at"`

	Cat Cat `json:"-" gorm:"foreignKey:CatID"`
}

type AIInteraction struct {
	ID     uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	CatID  *uuid.UUID `json:"cat_id" gorm:"type:uuid;index"`

	SessionID       string `json:"session_id" gorm:"size:100;index;not null"`
	InteractionType string `json:"interaction_type" gorm:"size:50;not null"`
	UserInput       string `json:"user_input" gorm:"type:text;not null"`
	AIResponse      string `json:"ai_response" gorm:"type:text;not null"`

	Context          datatypes.JSON `json:"context,omitempty"`
	Intent           string         `json:"intent" gorm:"size:100"`
	ConfidenceScore  *float64       `json:"confidence_score"`
	ProcessingTimeMS int            `json:"processing_time_ms"`

	ModelUsed  string   `json:"model_used" gorm:"size:100"`
	TokensUsed int      `json:"tokens_used"`
	Cost       *float64 `json:"cost"`

	UserRating   *int   `json:"user_rating"`
	UserFeedback string `json:"user_feedback" gorm:"type:text"`
	WasHelpful   *bool  `json:"was_helpful"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

type AIInsight struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CatID uuid.UUID `json:"cat_id" gorm:"type:uuid;index;not null"`

	InsightType     string   `json:"insight_type" gorm:"size:50;not null"`
	Title           string   `json:"title" gorm:"size:200;not null"`
	Description     string   `json:"description" gorm:"type:text;not null"`
	ConfidenceScore *float64 `json:"confidence_score"`

	AnalysisPeriod     string         `json:"analysis_period" gorm:"size:50"`
	DataPointsAnalyzed int            `json:"data_points_analyzed"`
	KeyFindings        datatypes.JSON `json:"key_findings,omitempty"`

	Recommendations datatypes.JSON `json:"recommendations,omitempty"`
	Priority        Priority       `json:"priority" gorm:"size:20;default:'medium'"`
	Actionable      bool           `json:"actionable" gorm:"default:true"`

	IsRead         bool   `json:"is_read" gorm:"default:false"`
	IsAcknowledged bool   `json:"is_acknowledged" gorm:"default:false"`
	UserNotes      string `json:"user_notes" gorm:"type:text"`

	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   *time.Time `json:"expires_at" gorm:"index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Cat Cat `json:"-" gorm:"foreignKey:CatID"`
}

func (i *AIInsight) IsExpired() bool {
	return i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

// UUIDs are assigned on the application side so the schema stays portable
// across postgres and the sqlite databases the tests run against.

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (c *Cat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (t *ReminderTime) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (a *ActivityRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (h *HealthRecord) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

func (i *AIInteraction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *AIInsight) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

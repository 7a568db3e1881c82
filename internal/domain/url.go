package domain

import "time"

// Risk levels assigned by the URL analyzer.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// URL represents a persisted short link.
type URL struct {
	ID          int64   `gorm:"primaryKey;column:id" json:"id"`
	ShortCode   string  `gorm:"column:short_code;size:64;uniqueIndex;not null" json:"short_code"`
	CustomAlias *string `gorm:"column:custom_alias;size:64;uniqueIndex" json:"custom_alias,omitempty"`
	OriginalURL string  `gorm:"column:original_url;type:text;not null" json:"original_url"`
	Title       *string `gorm:"column:title;size:200" json:"title,omitempty"`
	Description *string `gorm:"column:description;type:text" json:"description,omitempty"`

	// Nullable owner: anonymous creation is permitted with a reduced feature set.
	UserID *int64 `gorm:"column:user_id;index" json:"user_id,omitempty"`

	Clicks   int64 `gorm:"column:clicks;not null;default:0" json:"clicks"`
	IsActive bool  `gorm:"column:is_active;not null;default:true" json:"is_active"`

	ExpiresAt *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`

	// Stored and compared as-is for compatibility with the observed contract.
	// Known weakness: a deployment targeting real use should hash this.
	Password *string `gorm:"column:password;size:128" json:"-"`

	Tags []string `gorm:"column:tags;serializer:json" json:"tags,omitempty"`

	// Enrichment fields, populated once at creation and immutable afterward
	// (except for explicit QR regeneration by the owner).
	QRCode        *string `gorm:"column:qr_code;type:text" json:"qr_code,omitempty"`
	AISuggestions *string `gorm:"column:ai_suggestions;type:text" json:"ai_suggestions,omitempty"`
	IsAnalyzed    bool    `gorm:"column:is_analyzed;not null;default:false" json:"is_analyzed"`
	RiskLevel     string  `gorm:"column:risk_level;size:10;not null;default:low" json:"risk_level"`

	LastClicked *time.Time `gorm:"column:last_clicked" json:"last_clicked,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	ClickEvents []Click `gorm:"foreignKey:URLID" json:"-"`
}

// TableName returns the table name for GORM.
func (URL) TableName() string {
	return "urls"
}

// Expired reports whether the link has an expiration in the past relative to now.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}

// Protected reports whether the link requires a password.
func (u *URL) Protected() bool {
	return u.Password != nil && *u.Password != ""
}

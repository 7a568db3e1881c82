package domain

import "time"

// Click represents one recorded visit to a short link. Rows are append-only:
// they are never updated, and are deleted only when the owning URL is deleted.
type Click struct {
	ID    int64 `gorm:"primaryKey;column:id" json:"id"`
	URLID int64 `gorm:"column:url_id;not null;index:idx_clicks_url_time,priority:1" json:"url_id"`

	// Captured as received; the IP is a raw string, not parsed or validated.
	IP        string  `gorm:"column:ip;size:64;not null" json:"ip"`
	UserAgent *string `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer   *string `gorm:"column:referer;size:500" json:"referer,omitempty"`

	// Best-effort geo. Stays "Unknown" without a geolocation integration.
	Country string  `gorm:"column:country;size:64;not null;default:Unknown" json:"country"`
	City    *string `gorm:"column:city;size:100" json:"city,omitempty"`

	// Coarse labels derived from the User-Agent at click time.
	Device  string `gorm:"column:device;size:10;not null;default:unknown" json:"device"`
	Browser string `gorm:"column:browser;size:50;not null;default:unknown" json:"browser"`
	OS      string `gorm:"column:os;size:50;not null;default:unknown" json:"os"`

	ClickedAt time.Time `gorm:"column:clicked_at;autoCreateTime;index:idx_clicks_url_time,priority:2" json:"clicked_at"`

	// Relationships
	URL *URL `gorm:"foreignKey:URLID" json:"-"`
}

// TableName returns the table name for GORM.
func (Click) TableName() string {
	return "clicks"
}

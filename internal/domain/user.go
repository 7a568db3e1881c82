package domain

import "time"

// User represents a registered account. Authentication is credential based;
// anonymous visitors can still create links without one of these.
type User struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	Name         string     `gorm:"column:name;size:100;not null" json:"name"`
	Email        string     `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         string     `gorm:"column:role;size:20;not null;default:user" json:"role"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	URLs []URL `gorm:"foreignKey:UserID" json:"-"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

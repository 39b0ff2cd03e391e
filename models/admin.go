package models

import "time"

// Admin owns a fleet of workers and receives escalation alerts at Email.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Workers   []Worker  `gorm:"foreignKey:AdminID" json:"workers,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NotificationAddress is where escalation alerts for this admin are delivered.
func (a Admin) NotificationAddress() string {
	return a.Email
}

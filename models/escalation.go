package models

import "time"

// Escalation records an alert that reached the admin for a task past its grace deadline.
type Escalation struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AlertID      string       `gorm:"type:varchar(36);uniqueIndex;not null" json:"alert_id"`
	TaskID       uint         `gorm:"not null;index" json:"task_id"`
	Task         CleaningTask `gorm:"foreignKey:TaskID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	AdminID      uint         `gorm:"not null;index" json:"admin_id"`
	AdminAddress string       `gorm:"type:varchar(255);not null" json:"admin_address"`
	Deadline     time.Time    `gorm:"not null" json:"deadline"`
	SentAt       time.Time    `gorm:"not null" json:"sent_at"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

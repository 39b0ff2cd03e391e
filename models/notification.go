package models

import (
	"time"
)

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	AdminID   uint       `gorm:"not null;index" json:"admin_id"`
	Admin     Admin      `gorm:"foreignKey:AdminID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Title     string     `gorm:"type:varchar(100)" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

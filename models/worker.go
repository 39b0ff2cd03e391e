package models

import "time"

type Worker struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	AdminID       uint           `gorm:"not null;index" json:"admin_id"`
	UserID        *uint          `gorm:"uniqueIndex" json:"user_id,omitempty"`
	Admin         Admin          `gorm:"foreignKey:AdminID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber   string         `gorm:"type:varchar(30)" json:"phone_number"`
	ShortBio      string         `gorm:"type:text" json:"short_bio"`
	Deployed      bool           `gorm:"not null;default:false" json:"deployed"`
	Available     bool           `gorm:"not null" json:"available"`
	TeleID        string         `gorm:"type:varchar(100)" json:"tele_id"`
	CurPropertyID uint           `json:"cur_property_id"`
	HoursInWeek   int            `json:"hours_in_week"`
	Tasks         []CleaningTask `gorm:"foreignKey:WorkerID" json:"tasks,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

package models

import "time"

type Client struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255)" json:"email"`
	PhoneNumber string     `gorm:"type:varchar(30)" json:"phone_number"`
	Properties  []Property `gorm:"foreignKey:ClientID" json:"properties,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

package models

import "time"

type Property struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ClientID     uint           `gorm:"not null;index" json:"client_id"`
	Client       Client         `gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Address      string         `gorm:"type:varchar(255);not null" json:"address"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	PostalCode   string         `gorm:"type:varchar(20)" json:"postal_code"`
	PropertyType string         `gorm:"type:varchar(50)" json:"property_type"`
	Tasks        []CleaningTask `gorm:"foreignKey:PropertyID" json:"tasks,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Shift is one of the three fixed daily work windows.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftEvening   Shift = "evening"
)

// Valid reports whether s is one of the known shift kinds.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusUnassigned   TaskStatus = "unassigned"
	TaskStatusAssigned     TaskStatus = "assigned"
	TaskStatusAcknowledged TaskStatus = "acknowledged"
	TaskStatusCompleted    TaskStatus = "completed"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// Assigned may fall back to Unassigned when a task is released for reassignment.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskStatusUnassigned:
		return next == TaskStatusAssigned
	case TaskStatusAssigned:
		return next == TaskStatusAcknowledged || next == TaskStatusUnassigned
	case TaskStatusAcknowledged:
		return next == TaskStatusCompleted
	}
	return false
}

// CleaningTask is one shift of cleaning at a property. Date holds the calendar day
// at midnight UTC; the wall-clock start comes from the shift calendar.
type CleaningTask struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	PropertyID         uint       `gorm:"not null;index" json:"property_id"`
	Property           Property   `gorm:"foreignKey:PropertyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"property,omitempty"`
	WorkerID           *uint      `gorm:"uniqueIndex:idx_worker_date_shift" json:"worker_id,omitempty"`
	Worker             *Worker    `gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"worker,omitempty"`
	Date               *time.Time `gorm:"uniqueIndex:idx_worker_date_shift" json:"date,omitempty"`
	Shift              Shift      `gorm:"type:varchar(20);uniqueIndex:idx_worker_date_shift" json:"shift,omitempty"`
	Status             TaskStatus `gorm:"type:varchar(20);not null;default:'unassigned';index" json:"status"`
	ArrivalConfirmedAt *time.Time `json:"arrival_confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	EscalatedAt        *time.Time `gorm:"index" json:"escalated_at,omitempty"`
	AlertedAt          *time.Time `json:"alerted_at,omitempty"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

// AfterFind hands Date back as midnight UTC. The mysql driver returns DATETIME
// values in the DSN's loc, which can shift the stored day into the previous evening.
func (t *CleaningTask) AfterFind(*gorm.DB) error {
	if t.Date != nil {
		d := t.Date.UTC()
		t.Date = &d
	}
	return nil
}

// Escalated reports whether an alert has already been delivered for this task.
// EscalatedAt alone is only a claim by a running sweep.
func (t CleaningTask) Escalated() bool {
	return t.AlertedAt != nil
}

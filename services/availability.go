package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/cleanshift/models"
	"gorm.io/gorm"
)

// CheckEligibility explains why worker cannot take shift on date, or returns nil.
// worker.Tasks must hold the worker's current tasks; their status is ignored.
func CheckEligibility(worker *models.Worker, date time.Time, shift models.Shift) error {
	if !worker.Deployed {
		return ErrWorkerNotDeployed
	}
	if !worker.Available {
		return ErrWorkerUnavailable
	}
	for _, task := range worker.Tasks {
		if task.Date == nil {
			continue
		}
		if SameDay(*task.Date, date) && task.Shift == shift {
			return ErrShiftConflict
		}
	}
	return nil
}

// IsAvailable reports whether worker may be assigned shift on date.
func IsAvailable(worker *models.Worker, date time.Time, shift models.Shift) bool {
	return CheckEligibility(worker, date, shift) == nil
}

// AvailabilityService answers availability questions against the store.
type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// Check loads the worker with its tasks and runs CheckEligibility.
func (s *AvailabilityService) Check(ctx context.Context, workerID uint, date time.Time, shift models.Shift) error {
	if !shift.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownShift, shift)
	}
	worker, err := loadWorkerWithTasks(s.db.WithContext(ctx), workerID)
	if err != nil {
		return err
	}
	return CheckEligibility(worker, date, shift)
}

// AvailableWorkers lists the workers of adminID's fleet that could take shift on date.
func (s *AvailabilityService) AvailableWorkers(ctx context.Context, adminID uint, date time.Time, shift models.Shift) ([]models.Worker, error) {
	if !shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShift, shift)
	}

	var workers []models.Worker
	if err := s.db.WithContext(ctx).
		Preload("Tasks").
		Where("admin_id = ? AND deployed = ? AND available = ?", adminID, true, true).
		Order("id ASC").
		Find(&workers).Error; err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	eligible := make([]models.Worker, 0, len(workers))
	for i := range workers {
		if IsAvailable(&workers[i], date, shift) {
			w := workers[i]
			w.Tasks = nil
			eligible = append(eligible, w)
		}
	}
	return eligible, nil
}

func loadWorkerWithTasks(tx *gorm.DB, workerID uint) (*models.Worker, error) {
	var worker models.Worker
	if err := tx.Preload("Tasks").First(&worker, workerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to find worker: %w", err)
	}
	return &worker, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/cleanshift/models"
	"gorm.io/gorm"
)

// TaskService owns the cleaning task lifecycle and the cascading deletes of the
// worker/property graph.
type TaskService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{
		db:  db,
		now: time.Now,
	}
}

// TaskFilter narrows ListTasks. Zero fields are ignored.
type TaskFilter struct {
	Status     models.TaskStatus
	WorkerID   uint
	PropertyID uint
	AdminID    uint
	Date       *time.Time
}

// CreateTask opens an unassigned task for a property.
func (s *TaskService) CreateTask(ctx context.Context, propertyID uint) (*models.CleaningTask, error) {
	var task models.CleaningTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePropertyExists(tx, propertyID); err != nil {
			return err
		}
		task = models.CleaningTask{
			PropertyID: propertyID,
			Status:     models.TaskStatusUnassigned,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// AssignTask moves an unassigned task to workerID on date and shift. The
// availability check and the update share one transaction, and the unique
// (worker_id, date, shift) index rejects whatever a concurrent assignment slips past it.
func (s *TaskService) AssignTask(ctx context.Context, taskID, workerID uint, date time.Time, shift models.Shift) (*models.CleaningTask, error) {
	if !shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShift, shift)
	}
	day := NormalizeDate(date)

	var task models.CleaningTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}
		if !task.Status.CanTransition(models.TaskStatusAssigned) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, models.TaskStatusAssigned)
		}

		worker, err := loadWorkerWithTasks(tx, workerID)
		if err != nil {
			return err
		}
		if err := CheckEligibility(worker, day, shift); err != nil {
			return err
		}

		res := tx.Model(&models.CleaningTask{}).
			Where("id = ? AND status = ?", taskID, models.TaskStatusUnassigned).
			Updates(map[string]interface{}{
				"worker_id":    workerID,
				"date":         day,
				"shift":        shift,
				"status":       models.TaskStatusAssigned,
				"escalated_at": nil,
				"alerted_at":   nil,
			})
		if res.Error != nil {
			return translateWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: task %d is no longer unassigned", ErrInvalidTransition, taskID)
		}
		return tx.First(&task, taskID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ScheduleTask creates a task already assigned to workerID, atomically with the
// availability check.
func (s *TaskService) ScheduleTask(ctx context.Context, propertyID, workerID uint, date time.Time, shift models.Shift) (*models.CleaningTask, error) {
	if !shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShift, shift)
	}
	day := NormalizeDate(date)

	var task models.CleaningTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePropertyExists(tx, propertyID); err != nil {
			return err
		}
		worker, err := loadWorkerWithTasks(tx, workerID)
		if err != nil {
			return err
		}
		if err := CheckEligibility(worker, day, shift); err != nil {
			return err
		}

		wid := workerID
		task = models.CleaningTask{
			PropertyID: propertyID,
			WorkerID:   &wid,
			Date:       &day,
			Shift:      shift,
			Status:     models.TaskStatusAssigned,
		}
		if err := tx.Create(&task).Error; err != nil {
			return translateWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UnassignTask releases an assigned task that has not been acknowledged so it can
// be given to another worker. The escalation markers are cleared with it.
func (s *TaskService) UnassignTask(ctx context.Context, taskID uint) (*models.CleaningTask, error) {
	return s.transition(ctx, taskID, models.TaskStatusAssigned, models.TaskStatusUnassigned, 0, map[string]interface{}{
		"worker_id":    nil,
		"escalated_at": nil,
		"alerted_at":   nil,
	})
}

// AcknowledgeTask records workerID's arrival for its assigned task.
func (s *TaskService) AcknowledgeTask(ctx context.Context, taskID, workerID uint) (*models.CleaningTask, error) {
	if workerID == 0 {
		return nil, ErrWorkerNotFound
	}
	return s.transition(ctx, taskID, models.TaskStatusAssigned, models.TaskStatusAcknowledged, workerID, map[string]interface{}{
		"arrival_confirmed_at": s.now(),
	})
}

// CompleteTask finishes an acknowledged task. workerID 0 lets an admin complete
// it on the worker's behalf.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, workerID uint) (*models.CleaningTask, error) {
	return s.transition(ctx, taskID, models.TaskStatusAcknowledged, models.TaskStatusCompleted, workerID, map[string]interface{}{
		"completed_at": s.now(),
	})
}

func (s *TaskService) transition(ctx context.Context, taskID uint, from, to models.TaskStatus, workerID uint, updates map[string]interface{}) (*models.CleaningTask, error) {
	if !from.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	updates["status"] = to

	var task models.CleaningTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.CleaningTask{}).Where("id = ? AND status = ?", taskID, from)
		if workerID != 0 {
			q = q.Where("worker_id = ?", workerID)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update task: %w", res.Error)
		}

		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}
		if res.RowsAffected == 0 {
			if workerID != 0 && (task.WorkerID == nil || *task.WorkerID != workerID) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*models.CleaningTask, error) {
	var task models.CleaningTask
	if err := s.db.WithContext(ctx).Preload("Property").Preload("Worker").First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, f TaskFilter) ([]models.CleaningTask, error) {
	q := s.db.WithContext(ctx).Model(&models.CleaningTask{})
	if f.Status != "" {
		q = q.Where("cleaning_tasks.status = ?", f.Status)
	}
	if f.WorkerID != 0 {
		q = q.Where("cleaning_tasks.worker_id = ?", f.WorkerID)
	}
	if f.PropertyID != 0 {
		q = q.Where("cleaning_tasks.property_id = ?", f.PropertyID)
	}
	if f.Date != nil {
		q = q.Where("cleaning_tasks.date = ?", NormalizeDate(*f.Date))
	}
	if f.AdminID != 0 {
		q = q.Joins("JOIN workers ON workers.id = cleaning_tasks.worker_id").
			Where("workers.admin_id = ?", f.AdminID)
	}

	var tasks []models.CleaningTask
	if err := q.Preload("Property").Order("cleaning_tasks.id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// owesAlert matches assigned, unacknowledged tasks that are either unclaimed or
// hold a claim older than staleBefore that never led to a delivered alert.
const owesAlert = "status = ? AND arrival_confirmed_at IS NULL AND alerted_at IS NULL AND (escalated_at IS NULL OR escalated_at < ?)"

// FindAssignedUnacknowledged returns assigned tasks without an arrival
// confirmation that still owe an alert, with worker and admin loaded. Claims set
// before staleBefore count as abandoned.
func (s *TaskService) FindAssignedUnacknowledged(ctx context.Context, staleBefore time.Time) ([]models.CleaningTask, error) {
	var tasks []models.CleaningTask
	err := s.db.WithContext(ctx).
		Preload("Worker").
		Preload("Worker.Admin").
		Preload("Property").
		Where(owesAlert, models.TaskStatusAssigned, staleBefore.UTC()).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query unacknowledged tasks: %w", err)
	}
	return tasks, nil
}

// ClaimEscalation sets the escalation marker if the task still owes an alert.
// Only one caller can win the claim for a given task; a claim older than
// staleBefore can be taken over.
func (s *TaskService) ClaimEscalation(ctx context.Context, taskID uint, at, staleBefore time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CleaningTask{}).
		Where("id = ?", taskID).
		Where(owesAlert, models.TaskStatusAssigned, staleBefore.UTC()).
		Update("escalated_at", at.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim escalation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseEscalation clears a claim whose alert could not be delivered, so the
// next sweep tries again.
func (s *TaskService) ReleaseEscalation(ctx context.Context, taskID uint) error {
	if err := s.db.WithContext(ctx).Model(&models.CleaningTask{}).
		Where("id = ? AND alerted_at IS NULL", taskID).
		Update("escalated_at", nil).Error; err != nil {
		return fmt.Errorf("failed to release escalation: %w", err)
	}
	return nil
}

// RecordEscalation stores the delivered alert and marks the task as alerted.
func (s *TaskService) RecordEscalation(ctx context.Context, e *models.Escalation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("failed to record escalation: %w", err)
		}
		if err := tx.Model(&models.CleaningTask{}).
			Where("id = ?", e.TaskID).
			Update("alerted_at", e.SentAt.UTC()).Error; err != nil {
			return fmt.Errorf("failed to mark task alerted: %w", err)
		}
		return nil
	})
}

// DeleteTask removes a task and its escalation history.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Escalation{}).Error; err != nil {
			return fmt.Errorf("failed to delete escalations: %w", err)
		}
		res := tx.Delete(&models.CleaningTask{}, taskID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}

// DeleteWorker removes a worker together with every task it owns.
func (s *TaskService) DeleteWorker(ctx context.Context, workerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Worker{}, workerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWorkerNotFound
			}
			return fmt.Errorf("failed to find worker: %w", err)
		}
		owned := tx.Model(&models.CleaningTask{}).Select("id").Where("worker_id = ?", workerID)
		if err := deleteTasks(tx, owned, "worker_id = ?", workerID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Worker{}, workerID).Error; err != nil {
			return fmt.Errorf("failed to delete worker: %w", err)
		}
		return nil
	})
}

// DeleteProperty removes a property together with every task scheduled there.
func (s *TaskService) DeleteProperty(ctx context.Context, propertyID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePropertyExists(tx, propertyID); err != nil {
			return err
		}
		owned := tx.Model(&models.CleaningTask{}).Select("id").Where("property_id = ?", propertyID)
		if err := deleteTasks(tx, owned, "property_id = ?", propertyID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Property{}, propertyID).Error; err != nil {
			return fmt.Errorf("failed to delete property: %w", err)
		}
		return nil
	})
}

func deleteTasks(tx *gorm.DB, owned *gorm.DB, cond string, arg interface{}) error {
	if err := tx.Where("task_id IN (?)", owned).Delete(&models.Escalation{}).Error; err != nil {
		return fmt.Errorf("failed to delete escalations: %w", err)
	}
	if err := tx.Where(cond, arg).Delete(&models.CleaningTask{}).Error; err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

func (s *TaskService) SetWorkerDeployment(ctx context.Context, workerID uint, deployed bool) error {
	return s.updateWorkerFlag(ctx, workerID, "deployed", deployed)
}

func (s *TaskService) SetWorkerAvailability(ctx context.Context, workerID uint, available bool) error {
	return s.updateWorkerFlag(ctx, workerID, "available", available)
}

func (s *TaskService) updateWorkerFlag(ctx context.Context, workerID uint, column string, value bool) error {
	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&models.Worker{}, workerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkerNotFound
		}
		return fmt.Errorf("failed to find worker: %w", err)
	}
	if err := db.Model(&models.Worker{}).Where("id = ?", workerID).Update(column, value).Error; err != nil {
		return fmt.Errorf("failed to update worker: %w", err)
	}
	return nil
}

func ensurePropertyExists(tx *gorm.DB, propertyID uint) error {
	if err := tx.Select("id").First(&models.Property{}, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyNotFound
		}
		return fmt.Errorf("failed to find property: %w", err)
	}
	return nil
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrShiftConflict
	}
	return fmt.Errorf("failed to save task: %w", err)
}

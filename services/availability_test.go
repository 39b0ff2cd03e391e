package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cleanshift/models"
)

func taskOn(shift models.Shift, status models.TaskStatus) models.CleaningTask {
	d := testDay
	return models.CleaningTask{Date: &d, Shift: shift, Status: status}
}

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		name    string
		worker  models.Worker
		shift   models.Shift
		wantErr error
	}{
		{
			name:    "undeployed worker is never available",
			worker:  models.Worker{Deployed: false, Available: true},
			shift:   models.ShiftMorning,
			wantErr: ErrWorkerNotDeployed,
		},
		{
			name:    "unavailable worker",
			worker:  models.Worker{Deployed: true, Available: false},
			shift:   models.ShiftMorning,
			wantErr: ErrWorkerUnavailable,
		},
		{
			name: "same date and shift blocks",
			worker: models.Worker{Deployed: true, Available: true, Tasks: []models.CleaningTask{
				taskOn(models.ShiftMorning, models.TaskStatusAssigned),
			}},
			shift:   models.ShiftMorning,
			wantErr: ErrShiftConflict,
		},
		{
			name: "completed task still blocks its slot",
			worker: models.Worker{Deployed: true, Available: true, Tasks: []models.CleaningTask{
				taskOn(models.ShiftEvening, models.TaskStatusCompleted),
			}},
			shift:   models.ShiftEvening,
			wantErr: ErrShiftConflict,
		},
		{
			name: "other shift on the same day is free",
			worker: models.Worker{Deployed: true, Available: true, Tasks: []models.CleaningTask{
				taskOn(models.ShiftMorning, models.TaskStatusAssigned),
			}},
			shift: models.ShiftAfternoon,
		},
		{
			name:   "no tasks",
			worker: models.Worker{Deployed: true, Available: true},
			shift:  models.ShiftMorning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEligibility(&tt.worker, testDay, tt.shift)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.True(t, IsAvailable(&tt.worker, testDay, tt.shift))
				return
			}
			assert.Equal(t, tt.wantErr, err)
			assert.True(t, errors.Is(err, ErrConflict))
			assert.False(t, IsAvailable(&tt.worker, testDay, tt.shift))
		})
	}
}

func TestCheckEligibilityOtherDay(t *testing.T) {
	w := models.Worker{Deployed: true, Available: true, Tasks: []models.CleaningTask{
		taskOn(models.ShiftMorning, models.TaskStatusAssigned),
	}}
	assert.True(t, IsAvailable(&w, testDay.AddDate(0, 0, 1), models.ShiftMorning))
}

func TestAvailabilityServiceCheck(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	busy := seedWorker(t, db, f.Admin.ID, "Ana", true, true)
	free := seedWorker(t, db, f.Admin.ID, "Budi", true, true)

	tasks := NewTaskService(db)
	_, err := tasks.ScheduleTask(context.Background(), f.Property.ID, busy.ID, testDay, models.ShiftMorning)
	require.NoError(t, err)

	svc := NewAvailabilityService(db)
	assert.Equal(t, ErrShiftConflict, svc.Check(context.Background(), busy.ID, testDay, models.ShiftMorning))
	assert.NoError(t, svc.Check(context.Background(), free.ID, testDay, models.ShiftMorning))
	assert.NoError(t, svc.Check(context.Background(), busy.ID, testDay, models.ShiftEvening))

	assert.Equal(t, ErrWorkerNotFound, svc.Check(context.Background(), 9999, testDay, models.ShiftMorning))
	assert.True(t, errors.Is(svc.Check(context.Background(), free.ID, testDay, "night"), ErrUnknownShift))
}

func TestAvailableWorkers(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	busy := seedWorker(t, db, f.Admin.ID, "Ana", true, true)
	free := seedWorker(t, db, f.Admin.ID, "Budi", true, true)
	seedWorker(t, db, f.Admin.ID, "Citra", false, true)
	seedWorker(t, db, f.Admin.ID, "Dewi", true, false)

	other := models.Admin{Name: "Other", Email: "other@example.com"}
	require.NoError(t, db.Create(&other).Error)
	seedWorker(t, db, other.ID, "Eko", true, true)

	_, err := NewTaskService(db).ScheduleTask(context.Background(), f.Property.ID, busy.ID, testDay, models.ShiftMorning)
	require.NoError(t, err)

	workers, err := NewAvailabilityService(db).AvailableWorkers(context.Background(), f.Admin.ID, testDay, models.ShiftMorning)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, free.ID, workers[0].ID)

	workers, err = NewAvailabilityService(db).AvailableWorkers(context.Background(), f.Admin.ID, testDay, models.ShiftAfternoon)
	require.NoError(t, err)
	assert.Len(t, workers, 2)
}

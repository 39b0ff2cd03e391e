package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
	"golang.org/x/sync/singleflight"
)

// TaskStore is the part of the persistence store the monitor reads and marks.
type TaskStore interface {
	FindAssignedUnacknowledged(ctx context.Context, staleBefore time.Time) ([]models.CleaningTask, error)
	ClaimEscalation(ctx context.Context, taskID uint, at, staleBefore time.Time) (bool, error)
	ReleaseEscalation(ctx context.Context, taskID uint) error
	RecordEscalation(ctx context.Context, e *models.Escalation) error
}

// SweepResult summarises one sweep.
type SweepResult struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Examined     int           `json:"examined"`
	Breached     int           `json:"breached"`
	Alerted      int           `json:"alerted"`
	Failed       int           `json:"failed"`
	UnknownShift int           `json:"unknown_shift"`
	MissingAdmin int           `json:"missing_admin"`
	LostClaim    int           `json:"lost_claim"`
	Error        string        `json:"error,omitempty"`
}

// AckMonitor periodically escalates assigned tasks whose worker has not
// acknowledged arrival by the shift's grace deadline. Each task is alerted at most
// once: the escalation marker is claimed before delivery and released again if
// delivery fails, so the next sweep retries. A claim that is neither released nor
// followed by a recorded escalation within ClaimLease (the process died, or the
// release failed) is picked up again by a later sweep.
type AckMonitor struct {
	Store        TaskStore
	Gateway      NotificationGateway
	Calendar     ShiftCalendar
	GracePeriod  time.Duration
	Interval     time.Duration
	QueryTimeout time.Duration
	AlertTimeout time.Duration
	ClaimLease   time.Duration
	Now          func() time.Time
	Metrics      *MonitorMetrics

	group    singleflight.Group
	stopChan chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	mu       sync.RWMutex
	last     *SweepResult
}

func NewAckMonitor(store TaskStore, gateway NotificationGateway, calendar ShiftCalendar) *AckMonitor {
	return &AckMonitor{
		Store:        store,
		Gateway:      gateway,
		Calendar:     calendar,
		GracePeriod:  DefaultGracePeriod,
		Interval:     time.Minute,
		QueryTimeout: 10 * time.Second,
		AlertTimeout: 10 * time.Second,
		Now:          time.Now,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs a sweep every Interval until Stop is called.
func (m *AckMonitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep(context.Background())
			case <-m.stopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Printf("Acknowledgement monitor started (interval=%s, grace=%s)", m.Interval, m.GracePeriod)
}

// Stop ends the ticker loop and waits for a running sweep to finish.
func (m *AckMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.started.Load() {
			<-m.done
		}
	})
}

// Sweep runs one acknowledgement sweep. Concurrent callers share a single
// execution and all receive its result.
func (m *AckMonitor) Sweep(ctx context.Context) SweepResult {
	v, _, _ := m.group.Do("sweep", func() (interface{}, error) {
		return m.sweep(ctx), nil
	})
	return v.(SweepResult)
}

// LastResult returns the result of the most recent completed sweep.
func (m *AckMonitor) LastResult() (SweepResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return SweepResult{}, false
	}
	return *m.last, true
}

func (m *AckMonitor) sweep(ctx context.Context) SweepResult {
	result := SweepResult{StartedAt: m.now()}
	began := time.Now()
	defer func() {
		result.Duration = time.Since(began)
		m.Metrics.observeSweep(result)
		m.mu.Lock()
		r := result
		m.last = &r
		m.mu.Unlock()
	}()

	qctx, cancel := context.WithTimeout(ctx, m.QueryTimeout)
	tasks, err := m.Store.FindAssignedUnacknowledged(qctx, result.StartedAt.Add(-m.lease()))
	cancel()
	if err != nil {
		utils.ErrorLogger.Errorf("Acknowledgement sweep could not load tasks: %v", err)
		result.Error = err.Error()
		return result
	}
	result.Examined = len(tasks)

	for _, task := range tasks {
		m.checkTask(ctx, task, &result)
	}

	if result.Breached > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"examined": result.Examined,
			"breached": result.Breached,
			"alerted":  result.Alerted,
			"failed":   result.Failed,
		}).Info("Acknowledgement sweep finished")
	}
	return result
}

func (m *AckMonitor) checkTask(ctx context.Context, task models.CleaningTask, result *SweepResult) {
	log := utils.InfoLogger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"shift":   task.Shift,
	})

	if task.Date == nil {
		result.UnknownShift++
		log.Warn("Assigned task has no date, skipping")
		return
	}
	deadline, ok := m.Calendar.GraceDeadline(*task.Date, task.Shift, m.GracePeriod)
	if !ok {
		result.UnknownShift++
		log.Warn("Assigned task has an unknown shift, skipping")
		return
	}

	now := m.now()
	if !now.After(deadline) {
		return
	}
	result.Breached++

	if task.Worker == nil || task.Worker.Admin.NotificationAddress() == "" {
		result.MissingAdmin++
		utils.ErrorLogger.WithField("task_id", task.ID).Error("Breached task has no admin address to alert")
		return
	}
	address := task.Worker.Admin.NotificationAddress()
	log = log.WithFields(logrus.Fields{"admin": address, "deadline": deadline})

	qctx, cancel := context.WithTimeout(ctx, m.QueryTimeout)
	claimed, err := m.Store.ClaimEscalation(qctx, task.ID, now, now.Add(-m.lease()))
	cancel()
	if err != nil {
		result.Failed++
		utils.ErrorLogger.WithField("task_id", task.ID).Errorf("Could not mark task as escalated: %v", err)
		return
	}
	if !claimed {
		// acknowledged or escalated since the query ran
		result.LostClaim++
		return
	}

	alert := NewAlert(task, address, deadline, now)
	if err := m.deliver(ctx, alert); err != nil {
		result.Failed++
		utils.ErrorLogger.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"alert_id": alert.ID,
			"admin":    address,
		}).Errorf("Alert delivery failed, will retry next sweep: %v", err)
		qctx, cancel := context.WithTimeout(ctx, m.QueryTimeout)
		defer cancel()
		if rerr := m.Store.ReleaseEscalation(qctx, task.ID); rerr != nil {
			utils.ErrorLogger.WithField("task_id", task.ID).Errorf("Could not release escalation marker, retrying after %s: %v", m.lease(), rerr)
		}
		return
	}
	result.Alerted++
	log.WithField("alert_id", alert.ID).Info("Sent alert to admin")

	qctx, cancel = context.WithTimeout(ctx, m.QueryTimeout)
	defer cancel()
	if err := m.Store.RecordEscalation(qctx, &models.Escalation{
		AlertID:      alert.ID,
		TaskID:       task.ID,
		AdminID:      alert.AdminID,
		AdminAddress: address,
		Deadline:     deadline,
		SentAt:       now,
	}); err != nil {
		utils.ErrorLogger.WithField("task_id", task.ID).Errorf("Could not record escalation, the alert will be repeated after %s: %v", m.lease(), err)
	}
}

// deliver calls the gateway under AlertTimeout and turns a gateway panic into an error.
func (m *AckMonitor) deliver(ctx context.Context, alert Alert) (err error) {
	actx, cancel := context.WithTimeout(ctx, m.AlertTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	return m.Gateway.AlertAdmin(actx, alert)
}

// lease is how long a claim may stay undelivered before another sweep takes it over.
// It must outlast one delivery plus the store writes around it.
func (m *AckMonitor) lease() time.Duration {
	if m.ClaimLease > 0 {
		return m.ClaimLease
	}
	return m.AlertTimeout + 2*m.QueryTimeout
}

func (m *AckMonitor) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

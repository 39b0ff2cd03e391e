package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

// EventEscalation is the event name escalation alerts are broadcast under.
const EventEscalation = "task_escalation"

// Alert tells an admin that a worker missed the acknowledgement deadline of a task.
type Alert struct {
	ID           string       `json:"id"`
	TaskID       uint         `json:"task_id"`
	WorkerID     uint         `json:"worker_id"`
	WorkerName   string       `json:"worker_name"`
	PropertyID   uint         `json:"property_id"`
	Address      string       `json:"address"`
	AdminID      uint         `json:"admin_id"`
	AdminAddress string       `json:"admin_address"`
	AdminUserID  uint         `json:"-"`
	Date         string       `json:"date"`
	Shift        models.Shift `json:"shift"`
	Deadline     time.Time    `json:"deadline"`
	RaisedAt     time.Time    `json:"raised_at"`
}

// NewAlert builds the alert for task. task.Worker and task.Property should be loaded.
func NewAlert(task models.CleaningTask, adminAddress string, deadline, now time.Time) Alert {
	a := Alert{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		PropertyID:   task.PropertyID,
		Address:      task.Property.Address,
		AdminAddress: adminAddress,
		Shift:        task.Shift,
		Deadline:     deadline,
		RaisedAt:     now,
	}
	if task.Date != nil {
		a.Date = FormatDate(*task.Date)
	}
	if task.Worker != nil {
		a.WorkerID = task.Worker.ID
		a.WorkerName = task.Worker.Name
		a.AdminID = task.Worker.AdminID
		if task.Worker.Admin.UserID != nil {
			a.AdminUserID = *task.Worker.Admin.UserID
		}
	}
	return a
}

func (a Alert) Title() string {
	return fmt.Sprintf("Task %d not acknowledged", a.TaskID)
}

func (a Alert) Message() string {
	return fmt.Sprintf("%s has not confirmed arrival for the %s shift on %s at %s (deadline %s).",
		a.WorkerName, a.Shift, a.Date, a.Address, a.Deadline.Format(time.Kitchen))
}

// NotificationGateway delivers an alert to the admin's address. Retrying is the
// gateway's business; the monitor only reports success or failure.
type NotificationGateway interface {
	AlertAdmin(ctx context.Context, alert Alert) error
}

// GatewayFunc adapts a function to NotificationGateway.
type GatewayFunc func(ctx context.Context, alert Alert) error

func (f GatewayFunc) AlertAdmin(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// LogGateway only writes the alert to the info log.
type LogGateway struct{}

func (LogGateway) AlertAdmin(_ context.Context, alert Alert) error {
	utils.InfoLogger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"task_id":  alert.TaskID,
		"admin":    alert.AdminAddress,
	}).Warn("Sending alert to admin")
	return nil
}

// StoreGateway writes the alert into the admin's notification inbox.
type StoreGateway struct {
	db *gorm.DB
}

func NewStoreGateway(db *gorm.DB) *StoreGateway {
	return &StoreGateway{db: db}
}

func (g *StoreGateway) AlertAdmin(ctx context.Context, alert Alert) error {
	if alert.AdminID == 0 {
		return fmt.Errorf("alert %s has no admin", alert.ID)
	}
	notif := models.Notification{
		AdminID: alert.AdminID,
		Title:   alert.Title(),
		Message: alert.Message(),
	}
	if err := g.db.WithContext(ctx).Create(&notif).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// DashboardSender pushes an event to the live dashboard connections of one user.
type DashboardSender interface {
	SendToUser(ctx context.Context, role string, userID uint, event string, data interface{}) (int, error)
}

// HubGateway pushes the alert to the dashboards of the admin that owns the
// worker. Nobody else connected to the hub sees it.
type HubGateway struct {
	hub DashboardSender
}

func NewHubGateway(hub DashboardSender) *HubGateway {
	return &HubGateway{hub: hub}
}

func (g *HubGateway) AlertAdmin(ctx context.Context, alert Alert) error {
	if alert.AdminUserID == 0 {
		// admin has no login, so no dashboard to push to
		return nil
	}
	_, err := g.hub.SendToUser(ctx, models.RoleAdmin, alert.AdminUserID, EventEscalation, alert)
	return err
}

// FanoutGateway sends every alert to Primary and then to each Secondary. Only the
// primary decides whether the alert counts as delivered; secondary failures are logged.
type FanoutGateway struct {
	Primary   NotificationGateway
	Secondary []NotificationGateway
}

func (g *FanoutGateway) AlertAdmin(ctx context.Context, alert Alert) error {
	if err := g.Primary.AlertAdmin(ctx, alert); err != nil {
		return err
	}
	for _, gw := range g.Secondary {
		if err := gw.AlertAdmin(ctx, alert); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"alert_id": alert.ID,
				"task_id":  alert.TaskID,
				"gateway":  fmt.Sprintf("%T", gw),
			}).Errorf("Secondary alert delivery failed: %v", err)
		}
	}
	return nil
}

package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB      *gorm.DB
	Monitor *services.AckMonitor
	Hub     *hub.Hub
}

func NewAdminController(db *gorm.DB, monitor *services.AckMonitor, h *hub.Hub) *AdminController {
	return &AdminController{DB: db, Monitor: monitor, Hub: h}
}

// currentAdmin loads the Admin profile of the logged-in user.
func currentAdmin(db *gorm.DB, c *gin.Context) (*models.Admin, error) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, ErrNoUserID
	}
	var admin models.Admin
	if err := db.Where("user_id = ?", userID).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

type dashboardStats struct {
	TaskStats struct {
		Unassigned   int64 `json:"unassigned"`
		Assigned     int64 `json:"assigned"`
		Acknowledged int64 `json:"acknowledged"`
		Completed    int64 `json:"completed"`
	} `json:"task_stats"`
	WorkerStats struct {
		Total     int64 `json:"total"`
		Deployed  int64 `json:"deployed"`
		Available int64 `json:"available"`
	} `json:"worker_stats"`
	TodayTasks       int64                 `json:"today_tasks"`
	TodayEscalations int64                 `json:"today_escalations"`
	Properties       int64                 `json:"properties"`
	Clients          int64                 `json:"clients"`
	ConnectedClients int                   `json:"connected_clients"`
	LastSweep        *services.SweepResult `json:"last_sweep,omitempty"`
}

func (ac *AdminController) dashboardStats() (dashboardStats, error) {
	var stats dashboardStats
	counts := []struct {
		status models.TaskStatus
		dst    *int64
	}{
		{models.TaskStatusUnassigned, &stats.TaskStats.Unassigned},
		{models.TaskStatusAssigned, &stats.TaskStats.Assigned},
		{models.TaskStatusAcknowledged, &stats.TaskStats.Acknowledged},
		{models.TaskStatusCompleted, &stats.TaskStats.Completed},
	}
	for _, cnt := range counts {
		if err := ac.DB.Model(&models.CleaningTask{}).Where("status = ?", cnt.status).Count(cnt.dst).Error; err != nil {
			return stats, err
		}
	}

	ac.DB.Model(&models.Worker{}).Count(&stats.WorkerStats.Total)
	ac.DB.Model(&models.Worker{}).Where("deployed = ?", true).Count(&stats.WorkerStats.Deployed)
	ac.DB.Model(&models.Worker{}).Where("deployed = ? AND available = ?", true, true).Count(&stats.WorkerStats.Available)

	today := services.NormalizeDate(time.Now())
	ac.DB.Model(&models.CleaningTask{}).Where("date = ?", today).Count(&stats.TodayTasks)
	ac.DB.Model(&models.Escalation{}).Where("sent_at >= ?", today).Count(&stats.TodayEscalations)
	ac.DB.Model(&models.Property{}).Count(&stats.Properties)
	ac.DB.Model(&models.Client{}).Count(&stats.Clients)

	if ac.Hub != nil {
		stats.ConnectedClients = ac.Hub.ClientCount()
	}
	if ac.Monitor != nil {
		if last, ok := ac.Monitor.LastResult(); ok {
			stats.LastSweep = &last
		}
	}
	return stats, nil
}

// GetDashboardStats -> task, worker and escalation counters for the admin dashboard
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.dashboardStats()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

// BroadcastDashboard pushes fresh stats to connected dashboards.
func (ac *AdminController) BroadcastDashboard() {
	if ac.Hub == nil {
		return
	}
	stats, err := ac.dashboardStats()
	if err != nil {
		utils.ErrorLogger.Printf("Error computing dashboard stats: %v", err)
		return
	}
	if err := ac.Hub.Broadcast(hub.EventDashboardUpdate, stats); err != nil {
		utils.ErrorLogger.Printf("Error broadcasting dashboard stats: %v", err)
	}
}

func (ac *AdminController) GetAllAdmins(c *gin.Context) {
	var admins []models.Admin
	if err := ac.DB.Order("id ASC").Find(&admins).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of admins", admins)
}

// GetAdminByID -> admin with its worker fleet
func (ac *AdminController) GetAdminByID(c *gin.Context) {
	id, ok := paramID(c, "admin_id")
	if !ok {
		return
	}
	var admin models.Admin
	if err := ac.DB.Preload("Workers").First(&admin, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Admin detail", admin)
}

// UpdateAdmin changes the name or the notification email of an admin.
func (ac *AdminController) UpdateAdmin(c *gin.Context) {
	id, ok := paramID(c, "admin_id")
	if !ok {
		return
	}
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var admin models.Admin
	if err := ac.DB.First(&admin, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if body.Name != "" {
		admin.Name = body.Name
	}
	if body.Email != "" {
		admin.Email = body.Email
	}
	if err := ac.DB.Save(&admin).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Admin updated", admin)
}

// GetEscalations -> delivered alerts, newest first. Optional ?task_id= and ?admin_id=.
func (ac *AdminController) GetEscalations(c *gin.Context) {
	q := ac.DB.Model(&models.Escalation{})
	if v := c.Query("task_id"); v != "" {
		q = q.Where("task_id = ?", v)
	}
	if v := c.Query("admin_id"); v != "" {
		q = q.Where("admin_id = ?", v)
	}

	var escalations []models.Escalation
	if err := q.Order("sent_at DESC").Find(&escalations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of escalations", escalations)
}

// GetMonitorStatus -> monitor settings and the last sweep result
func (ac *AdminController) GetMonitorStatus(c *gin.Context) {
	if ac.Monitor == nil {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("acknowledgement monitor is not running"))
		return
	}
	data := gin.H{
		"interval":     ac.Monitor.Interval.String(),
		"grace_period": ac.Monitor.GracePeriod.String(),
		"timezone":     ac.Monitor.Calendar.Location.String(),
	}
	if last, ok := ac.Monitor.LastResult(); ok {
		data["last_sweep"] = last
	}
	utils.RespondJSON(c, http.StatusOK, "Monitor status", data)
}

// TriggerSweep runs a sweep now. A sweep already in progress is joined, not repeated.
func (ac *AdminController) TriggerSweep(c *gin.Context) {
	if ac.Monitor == nil {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("acknowledgement monitor is not running"))
		return
	}
	result := ac.Monitor.Sweep(c.Request.Context())
	utils.InfoLogger.Printf("Manual sweep: %d breached, %d alerted, %d failed", result.Breached, result.Alerted, result.Failed)
	if result.Alerted > 0 {
		ac.BroadcastDashboard()
	}
	utils.RespondJSON(c, http.StatusOK, "Sweep finished", result)
}

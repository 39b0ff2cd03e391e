package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

// NotificationController serves the escalation inbox of the logged-in admin.
type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// GetAllNotifications -> optional ?unread=true
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	admin, err := currentAdmin(nc.DB, c)
	if err != nil {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	q := nc.DB.Where("admin_id = ?", admin.ID)
	if c.Query("unread") == "true" {
		q = q.Where("read_at IS NULL")
	}
	var notifs []models.Notification
	if err := q.Order("created_at DESC").Find(&notifs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All notifications", notifs)
}

// MarkAsRead
func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	notif, ok := nc.ownNotification(c)
	if !ok {
		return
	}
	if notif.ReadAt == nil {
		now := time.Now()
		notif.ReadAt = &now
		if err := nc.DB.Model(notif).Update("read_at", now).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", notif)
}

// DeleteNotification
func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	notif, ok := nc.ownNotification(c)
	if !ok {
		return
	}
	if err := nc.DB.Delete(&models.Notification{}, notif.ID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification deleted", gin.H{"notif_id": notif.ID})
}

// ownNotification loads :notif_id if it belongs to the logged-in admin.
func (nc *NotificationController) ownNotification(c *gin.Context) (*models.Notification, bool) {
	id, ok := paramID(c, "notif_id")
	if !ok {
		return nil, false
	}
	admin, err := currentAdmin(nc.DB, c)
	if err != nil {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return nil, false
	}
	var notif models.Notification
	if err := nc.DB.Where("id = ? AND admin_id = ?", id, admin.ID).First(&notif).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return nil, false
	}
	return &notif, true
}

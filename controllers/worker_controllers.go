package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

type WorkerController struct {
	DB           *gorm.DB
	Tasks        *services.TaskService
	Availability *services.AvailabilityService
	Hub          *hub.Hub
}

func NewWorkerController(db *gorm.DB, tasks *services.TaskService, availability *services.AvailabilityService, h *hub.Hub) *WorkerController {
	return &WorkerController{DB: db, Tasks: tasks, Availability: availability, Hub: h}
}

func (wc *WorkerController) broadcast(worker interface{}) {
	if wc.Hub == nil {
		return
	}
	if err := wc.Hub.Broadcast(hub.EventWorkerUpdate, worker); err != nil {
		utils.ErrorLogger.Printf("Error broadcasting worker update: %v", err)
	}
}

// CreateWorker adds a worker to an admin's fleet. New workers start undeployed and available.
func (wc *WorkerController) CreateWorker(c *gin.Context) {
	var req struct {
		AdminID     uint   `json:"admin_id" binding:"required"`
		UserID      *uint  `json:"user_id"`
		Name        string `json:"name" binding:"required"`
		PhoneNumber string `json:"phone_number"`
		ShortBio    string `json:"short_bio"`
		TeleID      string `json:"tele_id"`
		HoursInWeek int    `json:"hours_in_week" binding:"gte=0"`
		Deployed    bool   `json:"deployed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var admin models.Admin
	if err := wc.DB.First(&admin, req.AdminID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("admin not found"))
		return
	}

	worker := models.Worker{
		AdminID:     req.AdminID,
		UserID:      req.UserID,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		ShortBio:    req.ShortBio,
		TeleID:      req.TeleID,
		HoursInWeek: req.HoursInWeek,
		Deployed:    req.Deployed,
		Available:   true,
	}
	if err := wc.DB.Create(&worker).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, errors.New("user is already linked to a worker"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	wc.broadcast(worker)

	utils.InfoLogger.Printf("New worker created: %s (admin=%d)", worker.Name, worker.AdminID)
	utils.RespondJSON(c, http.StatusCreated, "Worker created", worker)
}

// GetAllWorkers -> optional ?admin_id=, ?deployed=, ?available=
func (wc *WorkerController) GetAllWorkers(c *gin.Context) {
	q := wc.DB.Model(&models.Worker{})
	if v := c.Query("admin_id"); v != "" {
		q = q.Where("admin_id = ?", v)
	}
	if v := c.Query("deployed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		q = q.Where("deployed = ?", b)
	}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		q = q.Where("available = ?", b)
	}

	var workers []models.Worker
	if err := q.Order("id ASC").Find(&workers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of workers", workers)
}

// GetWorkerByID -> worker with its tasks
func (wc *WorkerController) GetWorkerByID(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	var worker models.Worker
	if err := wc.DB.Preload("Tasks").First(&worker, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Worker detail", worker)
}

func (wc *WorkerController) UpdateWorker(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	var body struct {
		Name          string `json:"name"`
		PhoneNumber   string `json:"phone_number"`
		ShortBio      string `json:"short_bio"`
		TeleID        string `json:"tele_id"`
		CurPropertyID *uint  `json:"cur_property_id"`
		HoursInWeek   *int   `json:"hours_in_week" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var worker models.Worker
	if err := wc.DB.First(&worker, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Name != "" {
		worker.Name = body.Name
	}
	if body.PhoneNumber != "" {
		worker.PhoneNumber = body.PhoneNumber
	}
	if body.ShortBio != "" {
		worker.ShortBio = body.ShortBio
	}
	if body.TeleID != "" {
		worker.TeleID = body.TeleID
	}
	if body.CurPropertyID != nil {
		worker.CurPropertyID = *body.CurPropertyID
	}
	if body.HoursInWeek != nil {
		worker.HoursInWeek = *body.HoursInWeek
	}

	if err := wc.DB.Save(&worker).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	wc.broadcast(worker)
	utils.RespondJSON(c, http.StatusOK, "Worker updated", worker)
}

// SetDeployment -> body {"deployed": bool}
func (wc *WorkerController) SetDeployment(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	var body struct {
		Deployed *bool `json:"deployed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := wc.Tasks.SetWorkerDeployment(c.Request.Context(), id, *body.Deployed); err != nil {
		respondServiceError(c, err)
		return
	}

	wc.broadcast(gin.H{"id": id, "deployed": *body.Deployed})
	utils.InfoLogger.Printf("Worker %d deployed=%t", id, *body.Deployed)
	utils.RespondJSON(c, http.StatusOK, "Worker deployment updated", gin.H{"id": id, "deployed": *body.Deployed})
}

// SetAvailability -> body {"available": bool}
func (wc *WorkerController) SetAvailability(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	var body struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := wc.Tasks.SetWorkerAvailability(c.Request.Context(), id, *body.Available); err != nil {
		respondServiceError(c, err)
		return
	}

	wc.broadcast(gin.H{"id": id, "available": *body.Available})
	utils.InfoLogger.Printf("Worker %d available=%t", id, *body.Available)
	utils.RespondJSON(c, http.StatusOK, "Worker availability updated", gin.H{"id": id, "available": *body.Available})
}

// CheckAvailability -> ?date=YYYY-MM-DD&shift=morning. Always 200; the reason
// explains a negative answer.
func (wc *WorkerController) CheckAvailability(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	date, shift, ok := bindDateShift(c)
	if !ok {
		return
	}

	err := wc.Availability.Check(c.Request.Context(), id, date, shift)
	if err != nil && !errors.Is(err, services.ErrConflict) {
		respondServiceError(c, err)
		return
	}

	data := gin.H{
		"worker_id": id,
		"date":      services.FormatDate(date),
		"shift":     shift,
		"available": err == nil,
	}
	if err != nil {
		data["reason"] = err.Error()
	}
	utils.RespondJSON(c, http.StatusOK, "Worker availability", data)
}

// GetAvailableWorkers -> ?admin_id=&date=&shift=
func (wc *WorkerController) GetAvailableWorkers(c *gin.Context) {
	adminID, err := strconv.ParseUint(c.Query("admin_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid admin_id"))
		return
	}
	date, shift, ok := bindDateShift(c)
	if !ok {
		return
	}

	workers, err := wc.Availability.AvailableWorkers(c.Request.Context(), uint(adminID), date, shift)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available workers", workers)
}

// DeleteWorker -> removes the worker and every task it owns
func (wc *WorkerController) DeleteWorker(c *gin.Context) {
	id, ok := paramID(c, "worker_id")
	if !ok {
		return
	}

	if err := wc.Tasks.DeleteWorker(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Worker %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Worker deleted", gin.H{"worker_id": id})
}

// bindDateShift reads ?date= and ?shift= from the query string.
func bindDateShift(c *gin.Context) (time.Time, models.Shift, bool) {
	return parseDateShift(c, c.Query("date"), c.Query("shift"))
}

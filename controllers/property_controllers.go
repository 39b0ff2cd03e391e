package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

type PropertyController struct {
	DB    *gorm.DB
	Tasks *services.TaskService
	Hub   *hub.Hub
}

func NewPropertyController(db *gorm.DB, tasks *services.TaskService, h *hub.Hub) *PropertyController {
	return &PropertyController{DB: db, Tasks: tasks, Hub: h}
}

func (pc *PropertyController) broadcast(action string, data interface{}) {
	if pc.Hub == nil {
		return
	}
	if err := pc.Hub.Broadcast(hub.EventPropertyUpdate, gin.H{"action": action, "property": data}); err != nil {
		utils.ErrorLogger.Printf("Error broadcasting property %s: %v", action, err)
	}
}

// CreateProperty -> register a property of a client
func (pc *PropertyController) CreateProperty(c *gin.Context) {
	var req struct {
		ClientID     uint    `json:"client_id" binding:"required"`
		Address      string  `json:"address" binding:"required"`
		Latitude     float64 `json:"latitude"`
		Longitude    float64 `json:"longitude"`
		PostalCode   string  `json:"postal_code"`
		PropertyType string  `json:"property_type"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var client models.Client
	if err := pc.DB.First(&client, req.ClientID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	property := models.Property{
		ClientID:     req.ClientID,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		PostalCode:   req.PostalCode,
		PropertyType: req.PropertyType,
	}
	if err := pc.DB.Create(&property).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	pc.broadcast("create", property)

	utils.InfoLogger.Printf("New property created: %s (client=%d)", property.Address, property.ClientID)
	utils.RespondJSON(c, http.StatusCreated, "Property created successfully", property)
}

// GetAllProperties -> optional ?client_id=
func (pc *PropertyController) GetAllProperties(c *gin.Context) {
	q := pc.DB.Model(&models.Property{})
	if v := c.Query("client_id"); v != "" {
		q = q.Where("client_id = ?", v)
	}
	var properties []models.Property
	if err := q.Order("id ASC").Find(&properties).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of properties", properties)
}

// GetPropertyByID -> property with its tasks
func (pc *PropertyController) GetPropertyByID(c *gin.Context) {
	id, ok := paramID(c, "property_id")
	if !ok {
		return
	}
	var property models.Property
	if err := pc.DB.Preload("Tasks").First(&property, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Property detail", property)
}

func (pc *PropertyController) UpdateProperty(c *gin.Context) {
	id, ok := paramID(c, "property_id")
	if !ok {
		return
	}
	var body struct {
		Address      string   `json:"address"`
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		PostalCode   string   `json:"postal_code"`
		PropertyType string   `json:"property_type"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var property models.Property
	if err := pc.DB.First(&property, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Address != "" {
		property.Address = body.Address
	}
	if body.Latitude != nil {
		property.Latitude = *body.Latitude
	}
	if body.Longitude != nil {
		property.Longitude = *body.Longitude
	}
	if body.PostalCode != "" {
		property.PostalCode = body.PostalCode
	}
	if body.PropertyType != "" {
		property.PropertyType = body.PropertyType
	}

	if err := pc.DB.Save(&property).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	pc.broadcast("update", property)

	utils.RespondJSON(c, http.StatusOK, "Property updated", property)
}

// DeleteProperty -> removes the property and every task scheduled there
func (pc *PropertyController) DeleteProperty(c *gin.Context) {
	id, ok := paramID(c, "property_id")
	if !ok {
		return
	}

	if err := pc.Tasks.DeleteProperty(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	pc.broadcast("delete", gin.H{"id": id})

	utils.InfoLogger.Printf("Property %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Property deleted", gin.H{
		"id": id,
	})
}

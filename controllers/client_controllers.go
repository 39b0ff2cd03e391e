package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

var ErrClientHasProperties = errors.New("client still has properties")

type ClientController struct {
	DB *gorm.DB
}

func NewClientController(db *gorm.DB) *ClientController {
	return &ClientController{DB: db}
}

// GetAllClients -> every client with its properties
func (cc *ClientController) GetAllClients(c *gin.Context) {
	var clients []models.Client
	if err := cc.DB.Preload("Properties").Order("id ASC").Find(&clients).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of clients", clients)
}

func (cc *ClientController) CreateClient(c *gin.Context) {
	type reqBody struct {
		Name        string `json:"name" binding:"required"`
		Email       string `json:"email" binding:"omitempty,email"`
		PhoneNumber string `json:"phone_number"`
	}

	var req reqBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	client := models.Client{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}
	if err := cc.DB.Create(&client).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New client created (ID=%d)", client.ID)

	utils.RespondJSON(c, http.StatusCreated, "Client created", client)
}

func (cc *ClientController) GetClientByID(c *gin.Context) {
	id, ok := paramID(c, "client_id")
	if !ok {
		return
	}

	var client models.Client
	if err := cc.DB.Preload("Properties").First(&client, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Client detail", client)
}

func (cc *ClientController) UpdateClient(c *gin.Context) {
	id, ok := paramID(c, "client_id")
	if !ok {
		return
	}

	type reqBody struct {
		Name        string `json:"name"`
		Email       string `json:"email" binding:"omitempty,email"`
		PhoneNumber string `json:"phone_number"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var client models.Client
	if err := cc.DB.First(&client, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Name != "" {
		client.Name = body.Name
	}
	if body.Email != "" {
		client.Email = body.Email
	}
	if body.PhoneNumber != "" {
		client.PhoneNumber = body.PhoneNumber
	}

	if err := cc.DB.Save(&client).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Client updated", client)
}

// DeleteClient only removes a client without properties; properties are deleted
// one by one so their tasks go with them.
func (cc *ClientController) DeleteClient(c *gin.Context) {
	id, ok := paramID(c, "client_id")
	if !ok {
		return
	}

	var client models.Client
	if err := cc.DB.First(&client, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var props int64
	if err := cc.DB.Model(&models.Property{}).Where("client_id = ?", id).Count(&props).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if props > 0 {
		utils.RespondError(c, http.StatusConflict, ErrClientHasProperties)
		return
	}

	if err := cc.DB.Delete(&client).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Client %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Client deleted", gin.H{"client_id": id})
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

var (
	ErrNoPermission = errors.New("you do not have permission")
	ErrNoUserID     = errors.New("user id not found in context")
)

// respondServiceError maps service errors onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrConflict):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrWorkerNotFound),
		errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrUnknownShift):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.ErrorLogger.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// paramID reads a numeric path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// currentUserID is the user id the auth middleware stored in the context.
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// internal/handler/preferences_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"currency-conversion/internal/models"
	"currency-conversion/internal/service"
)

type PreferencesHandler struct {
	service *service.PreferencesService
	logger  *zap.Logger
}

func NewPreferencesHandler(service *service.PreferencesService, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{service: service, logger: logger}
}

func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.service.Get(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load preferences")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var update models.PreferencesUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBindError(c, err)
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), c.Param("userID"), update)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update preferences")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

package handler

import (
	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// ModelHandler serves the model catalog.
type ModelHandler struct {
	modelService *service.ModelService
}

// NewModelHandler creates a ModelHandler.
func NewModelHandler(modelService *service.ModelService) *ModelHandler {
	return &ModelHandler{modelService: modelService}
}

// GetModels lists catalog models, prices and routes.
func (h *ModelHandler) GetModels(c *gin.Context) {
	utils.SuccessResponse(c, h.modelService.List())
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/service"
)

type InventoryHandler struct {
	service service.InventoryServiceInterface
}

func NewInventoryHandler(s service.InventoryServiceInterface) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := uuidParam(c, "dish_id")
	if !ok {
		return
	}
	var req domain.StockAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	d, err := h.service.AdjustDishStock(c.Request.Context(), id, req.Delta, currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *InventoryHandler) ReserveTable(c *gin.Context) {
	id, ok := uuidParam(c, "table_id")
	if !ok {
		return
	}
	t, err := h.service.ReserveTable(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *InventoryHandler) FreeTable(c *gin.Context) {
	id, ok := uuidParam(c, "table_id")
	if !ok {
		return
	}
	t, err := h.service.FreeTable(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

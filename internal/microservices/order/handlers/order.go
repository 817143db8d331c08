package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	restaurantID, ok := uuidParam(c, "restaurant_id")
	if !ok {
		return
	}
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	req.RestaurantID = restaurantID
	req.CustomerID = currentActor(c)

	o, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain.CreateOrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
	})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	restaurantID, ok := uuidParam(c, "restaurant_id")
	if !ok {
		return
	}
	f := domain.OrderFilter{
		RestaurantID: restaurantID,
		Status:       domain.OrderStatus(c.Query("status")),
		Limit:        atoiDefault(c.Query("limit"), domain.DefaultPageSize),
		Offset:       atoiDefault(c.Query("offset"), 0),
	}
	f.Limit, f.Offset = f.Page()
	if s := c.Query("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeProblem(c, http.StatusBadRequest, "validation_error", "customer_id must be a UUID")
			return
		}
		f.CustomerID = &id
	}
	orders, err := h.service.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": f.Limit, "offset": f.Offset})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	o, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) GetTimeline(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	limit := atoiDefault(c.Query("limit"), 50)
	offset := atoiDefault(c.Query("offset"), 0)
	events, err := h.service.Timeline(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "events": events})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	var req domain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	o, err := h.service.SetOrderStatus(c.Request.Context(), id, req.Status, currentActor(c), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	var req domain.CancelOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
			return
		}
	}
	o, err := h.service.CancelOrder(c.Request.Context(), id, currentActor(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) AddReview(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	var req domain.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	o, err := h.service.AddReview(c.Request.Context(), id, currentActor(c), req.Rating, req.Review)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	id, ok := uuidParam(c, "order_id")
	if !ok {
		return
	}
	var req domain.PaymentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	o, err := h.service.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus, currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) DailySummary(c *gin.Context) {
	restaurantID, ok := uuidParam(c, "restaurant_id")
	if !ok {
		return
	}
	day := time.Now().UTC()
	if s := c.Query("date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeProblem(c, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
			return
		}
		day = d
	}
	sum, err := h.service.DailySummary(c.Request.Context(), restaurantID, day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

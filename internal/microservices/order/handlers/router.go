package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/common/logger"
)

type RouterConfig struct {
	JWTSecret     string
	MaxConcurrent int
}

func Router(h *Handler, cfg RouterConfig, lg *logger.Logger) (*gin.Engine, error) {
	auth, err := Auth(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLog(lg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", Limit(cfg.MaxConcurrent), auth)
	{
		api.POST("/restaurants/:restaurant_id/orders", h.OrderHandler.CreateOrder)
		api.GET("/restaurants/:restaurant_id/orders", h.OrderHandler.ListOrders)
		api.GET("/restaurants/:restaurant_id/summary", h.OrderHandler.DailySummary)

		api.GET("/orders/:order_id", h.OrderHandler.GetOrder)
		api.GET("/orders/:order_id/timeline", h.OrderHandler.GetTimeline)
		api.PATCH("/orders/:order_id/status", h.OrderHandler.UpdateStatus)
		api.POST("/orders/:order_id/cancel", h.OrderHandler.CancelOrder)
		api.POST("/orders/:order_id/review", h.OrderHandler.AddReview)
		api.PATCH("/orders/:order_id/payment", h.OrderHandler.UpdatePayment)

		api.POST("/dishes/:dish_id/stock", h.InventoryHandler.AdjustStock)
		api.POST("/tables/:table_id/reserve", h.InventoryHandler.ReserveTable)
		api.POST("/tables/:table_id/free", h.InventoryHandler.FreeTable)
	}
	return r, nil
}

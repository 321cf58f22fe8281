package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/middleware"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/service"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, order model.Order) (*model.Order, error)
	BuildTypedOrder(ctx context.Context, order model.Order) (*service.TypedOrder, error)
}

type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req model.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), req.Order)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		_ = c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "order_id", order.OrderID)
	middleware.AddAuditContext(c, "client_order_id", order.Metadata.ClientOrderID)
	c.JSON(http.StatusOK, model.CreateOrderResponse{Result: *order})
}

// BuildTypedOrder returns the EIP-712 payload for an order without
// signing or submitting it.
func (h *OrderHandler) BuildTypedOrder(c *gin.Context) {
	var req model.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	typed, err := h.svc.BuildTypedOrder(c.Request.Context(), req.Order)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, typed)
}

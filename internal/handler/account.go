package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/middleware"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
)

type AccountService interface {
	Transfer(ctx context.Context, transfer model.Transfer) (bool, error)
	Withdraw(ctx context.Context, withdrawal model.Withdrawal) (bool, error)
	SessionStatus() model.SessionStatus
}

type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Transfer(c *gin.Context) {
	var req model.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	ack, err := h.svc.Transfer(c.Request.Context(), req.Transfer)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		_ = c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "transfer")
	c.JSON(http.StatusOK, ackResponse(ack))
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req model.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	ack, err := h.svc.Withdraw(c.Request.Context(), req.Withdrawal)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		_ = c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "withdrawal")
	c.JSON(http.StatusOK, ackResponse(ack))
}

func (h *AccountHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.SessionStatus())
}

func ackResponse(ack bool) model.AckResponse {
	var resp model.AckResponse
	resp.Result.Ack = ack
	return resp
}

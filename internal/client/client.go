package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
)

const (
	CreateOrderPath = "/full/v1/create_order"
	TransferPath    = "/full/v1/transfer"
	WithdrawalPath  = "/full/v1/withdrawal"
)

// Poster performs an authenticated JSON POST. *session.Manager implements it.
type Poster interface {
	Post(ctx context.Context, url string, body, out any) error
}

// Client submits signed operations to the trade-data endpoint. It never
// signs anything itself.
type Client struct {
	session   Poster
	tradeData string
	log       *slog.Logger
}

func New(session Poster, env config.EnvConfig) *Client {
	return &Client{
		session:   session,
		tradeData: strings.TrimSuffix(env.TradeData.RPCEndpoint, "/"),
		log:       logger.Component("client"),
	}
}

type createOrderRequest struct {
	Order *model.Order `json:"order"`
}

func (c *Client) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := requireSigned(order.Signature); err != nil {
		return nil, err
	}
	var resp model.CreateOrderResponse
	if err := c.session.Post(ctx, c.tradeData+CreateOrderPath, createOrderRequest{Order: order}, &resp); err != nil {
		return nil, err
	}
	c.log.Debug("order created", "order_id", resp.Result.OrderID, "client_order_id", resp.Result.Metadata.ClientOrderID)
	return &resp.Result, nil
}

func (c *Client) Transfer(ctx context.Context, transfer *model.Transfer) (bool, error) {
	if err := requireSigned(transfer.Signature); err != nil {
		return false, err
	}
	var resp model.AckResponse
	if err := c.session.Post(ctx, c.tradeData+TransferPath, transfer, &resp); err != nil {
		return false, err
	}
	return resp.Result.Ack, nil
}

func (c *Client) Withdraw(ctx context.Context, withdrawal *model.Withdrawal) (bool, error) {
	if err := requireSigned(withdrawal.Signature); err != nil {
		return false, err
	}
	var resp model.AckResponse
	if err := c.session.Post(ctx, c.tradeData+WithdrawalPath, withdrawal, &resp); err != nil {
		return false, err
	}
	return resp.Result.Ack, nil
}

func requireSigned(sig model.Signature) error {
	if !sig.Signed() {
		return fmt.Errorf("operation is not signed")
	}
	return nil
}

package model

// PlaceOrderRequest is the gateway body for POST /v1/orders.
type PlaceOrderRequest struct {
	Order Order `json:"order" binding:"required"`
}

type TransferRequest struct {
	Transfer Transfer `json:"transfer" binding:"required"`
}

type WithdrawalRequest struct {
	Withdrawal Withdrawal `json:"withdrawal" binding:"required"`
}

// CreateOrderResponse mirrors the exchange's {"result": order} envelope.
type CreateOrderResponse struct {
	Result Order `json:"result"`
}

// AckResponse is returned by transfer and withdrawal endpoints.
type AckResponse struct {
	Result struct {
		Ack bool `json:"ack"`
	} `json:"result"`
}

type SessionStatus struct {
	State     string `json:"state"`
	AccountID string `json:"account_id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix milliseconds
}

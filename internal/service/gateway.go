package service

import (
	"context"
	"encoding/binary"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/manager"
	"github.com/haeminmoon/grvtgate/internal/market"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
	"github.com/haeminmoon/grvtgate/internal/session"
	"github.com/haeminmoon/grvtgate/internal/signer"
)

// OperationSigner is implemented by *signer.Engine.
type OperationSigner interface {
	Address() string
	ChainID() int64
	SignOrder(ctx context.Context, order *model.Order, instruments map[string]model.Instrument) (*model.Order, error)
	SignTransfer(ctx context.Context, transfer *model.Transfer) (*model.Transfer, error)
	SignWithdrawal(ctx context.Context, withdrawal *model.Withdrawal) (*model.Withdrawal, error)
}

// Submitter is implemented by *client.Client.
type Submitter interface {
	CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error)
	Transfer(ctx context.Context, transfer *model.Transfer) (bool, error)
	Withdraw(ctx context.Context, withdrawal *model.Withdrawal) (bool, error)
}

// SessionView is implemented by *session.Manager.
type SessionView interface {
	State() session.State
	Cookie() *session.Cookie
}

type GatewayService struct {
	signer       OperationSigner
	client       Submitter
	instruments  market.Provider
	nonces       *manager.NonceManager
	session      SessionView
	risk         *RiskEngine // optional
	subAccountID string
	log          *slog.Logger
}

func NewGatewayService(cfg *config.Config, s OperationSigner, c Submitter, instruments market.Provider, nonces *manager.NonceManager, sess SessionView, risk *RiskEngine) *GatewayService {
	return &GatewayService{
		signer:       s,
		client:       c,
		instruments:  instruments,
		nonces:       nonces,
		session:      sess,
		risk:         risk,
		subAccountID: strings.TrimSpace(cfg.Grvt.TradingAccountID),
		log:          logger.Component("gateway"),
	}
}

// PlaceOrder completes the order (sub account, client order id, nonce,
// expiration), runs the pre-trade checks, signs it and submits it.
func (s *GatewayService) PlaceOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	if err := s.prepareOrder(ctx, &order); err != nil {
		return nil, err
	}
	if s.risk != nil {
		if err := s.risk.CheckOrder(ctx, &order); err != nil {
			return nil, err
		}
	}
	signed, err := s.signer.SignOrder(ctx, &order, s.instruments.Instruments())
	if err != nil {
		return nil, err
	}
	s.log.Info("submitting order",
		"client_order_id", signed.Metadata.ClientOrderID,
		"sub_account_id", signed.SubAccountID,
		"legs", len(signed.Legs),
		"nonce", signed.Signature.Nonce,
	)
	created, err := s.client.CreateOrder(ctx, signed)
	if err != nil {
		return nil, err
	}
	if s.risk != nil {
		s.risk.PostOrderHook(ctx, signed)
	}
	return created, nil
}

// TypedOrder is the EIP-712 payload and digest an external key holder
// would sign for the completed order. Nothing is submitted.
type TypedOrder struct {
	Order     model.Order        `json:"order"`
	TypedData apitypes.TypedData `json:"typed_data"`
	Digest    string             `json:"digest"`
}

func (s *GatewayService) BuildTypedOrder(ctx context.Context, order model.Order) (*TypedOrder, error) {
	if err := s.prepareOrder(ctx, &order); err != nil {
		return nil, err
	}
	data, err := signer.OrderTypedData(&order, s.instruments.Instruments(), s.signer.ChainID())
	if err != nil {
		return nil, err
	}
	digest, err := signer.TypedDataHash(data)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "hash typed data", err)
	}
	return &TypedOrder{Order: order, TypedData: data, Digest: hexutil.Encode(digest)}, nil
}

func (s *GatewayService) Transfer(ctx context.Context, transfer model.Transfer) (bool, error) {
	if transfer.FromSubAccountID == "" {
		transfer.FromSubAccountID = s.subAccountID
	}
	if err := s.nonces.Stamp(ctx, s.signer.Address(), &transfer.Signature); err != nil {
		return false, apperrors.New(apperrors.ErrInternal, "allocate nonce", err)
	}
	signed, err := s.signer.SignTransfer(ctx, &transfer)
	if err != nil {
		return false, err
	}
	s.log.Info("submitting transfer", "currency", signed.Currency, "num_tokens", signed.NumTokens, "nonce", signed.Signature.Nonce)
	return s.client.Transfer(ctx, signed)
}

func (s *GatewayService) Withdraw(ctx context.Context, withdrawal model.Withdrawal) (bool, error) {
	if err := s.nonces.Stamp(ctx, s.signer.Address(), &withdrawal.Signature); err != nil {
		return false, apperrors.New(apperrors.ErrInternal, "allocate nonce", err)
	}
	signed, err := s.signer.SignWithdrawal(ctx, &withdrawal)
	if err != nil {
		return false, err
	}
	s.log.Info("submitting withdrawal", "currency", signed.Currency, "num_tokens", signed.NumTokens, "nonce", signed.Signature.Nonce)
	return s.client.Withdraw(ctx, signed)
}

func (s *GatewayService) SessionStatus() model.SessionStatus {
	status := model.SessionStatus{State: s.session.State().String()}
	if c := s.session.Cookie(); c != nil {
		status.AccountID = c.AccountID
		if !c.Expires.IsZero() {
			status.ExpiresAt = c.Expires.UnixMilli()
		}
	}
	return status
}

func (s *GatewayService) prepareOrder(ctx context.Context, order *model.Order) error {
	if order.SubAccountID == "" {
		order.SubAccountID = s.subAccountID
	}
	if len(order.Legs) == 0 {
		return apperrors.NewValidation("order has no legs")
	}
	if order.TimeInForce == "" {
		order.TimeInForce = model.GoodTillTime
	}
	if order.Metadata.ClientOrderID == "" {
		order.Metadata.ClientOrderID = NewClientOrderID()
	}
	if err := s.nonces.Stamp(ctx, s.signer.Address(), &order.Signature); err != nil {
		return apperrors.New(apperrors.ErrInternal, "allocate nonce", err)
	}
	return nil
}

// NewClientOrderID returns a random uint64 in [2^63, 2^64) as a decimal
// string, the range the exchange leaves to API clients.
func NewClientOrderID() string {
	id := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(id[:8])|1<<63, 10)
}

package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/pkg/metrics"
)

// Engine turns orders, transfers and withdrawals into signed wire payloads.
// It keeps no state between calls; the only side effect is writing the
// signature fields of the operation it is given.
type Engine struct {
	keys    KeySigner
	chainID int64
}

func NewEngine(keys KeySigner, env config.Env) (*Engine, error) {
	if keys == nil {
		return nil, apperrors.NewConfiguration("private key is not set")
	}
	chainID, err := env.ChainID()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfiguration, "invalid environment", err)
	}
	return &Engine{keys: keys, chainID: chainID}, nil
}

// NewEngineFromPrivateKey builds an engine around an in-process Wallet.
func NewEngineFromPrivateKey(privateKeyHex string, env config.Env) (*Engine, error) {
	if privateKeyHex == "" {
		return nil, apperrors.NewConfiguration("private key is not set")
	}
	wallet, err := NewWallet(privateKeyHex)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfiguration, "invalid private key", err)
	}
	return NewEngine(wallet, env)
}

func (e *Engine) ChainID() int64 {
	return e.chainID
}

func (e *Engine) Address() string {
	return e.keys.Address().Hex()
}

func (e *Engine) SignOrder(ctx context.Context, order *model.Order, instruments map[string]model.Instrument) (*model.Order, error) {
	data, err := OrderTypedData(order, instruments, e.chainID)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("order", "invalid").Inc()
		return nil, err
	}
	if err := e.sign(ctx, "order", data, &order.Signature); err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) SignTransfer(ctx context.Context, transfer *model.Transfer) (*model.Transfer, error) {
	data, err := TransferTypedData(transfer, e.chainID)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("transfer", "invalid").Inc()
		return nil, err
	}
	if err := e.sign(ctx, "transfer", data, &transfer.Signature); err != nil {
		return nil, err
	}
	return transfer, nil
}

func (e *Engine) SignWithdrawal(ctx context.Context, withdrawal *model.Withdrawal) (*model.Withdrawal, error) {
	data, err := WithdrawalTypedData(withdrawal, e.chainID)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("withdrawal", "invalid").Inc()
		return nil, err
	}
	if err := e.sign(ctx, "withdrawal", data, &withdrawal.Signature); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// sign writes signer, r, s and v in a single assignment, and only after the
// capability has returned a well-formed signature.
func (e *Engine) sign(ctx context.Context, kind string, data apitypes.TypedData, dst *model.Signature) error {
	raw, err := e.keys.SignTypedData(ctx, data)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues(kind, "error").Inc()
		return err
	}
	if len(raw) != 65 {
		metrics.SignaturesTotal.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("invalid signature length %d", len(raw))
	}
	v := int(raw[64])
	if v < 27 {
		v += 27
	}

	signed := *dst
	signed.Signer = e.keys.Address().Hex()
	signed.R = hexutil.Encode(raw[0:32])
	signed.S = hexutil.Encode(raw[32:64])
	signed.V = v
	*dst = signed

	metrics.SignaturesTotal.WithLabelValues(kind, "ok").Inc()
	return nil
}

package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
)

// TimeInForceCode maps the API enum to its signed uint8 encoding.
func TimeInForceCode(tif model.TimeInForce) (uint8, error) {
	switch tif {
	case model.GoodTillTime:
		return 1, nil
	case model.AllOrNone:
		return 2, nil
	case model.ImmediateOrCancel:
		return 3, nil
	case model.FillOrKill:
		return 4, nil
	default:
		return 0, apperrors.NewValidation("unknown time in force %q", tif)
	}
}

// CurrencyCode maps a currency to the exchange's uint8 token id.
func CurrencyCode(c model.Currency) (uint8, error) {
	switch c {
	case model.CurrencyUSD:
		return 1, nil
	case model.CurrencyUSDC:
		return 2, nil
	case model.CurrencyUSDT:
		return 3, nil
	case model.CurrencyETH:
		return 4, nil
	case model.CurrencyBTC:
		return 5, nil
	default:
		return 0, apperrors.NewValidation("unknown currency %q", c)
	}
}

// OrderTypedData builds the structured message for an order. It is
// deterministic: the same order and instruments always hash identically.
func OrderTypedData(order *model.Order, instruments map[string]model.Instrument, chainID int64) (apitypes.TypedData, error) {
	if order == nil {
		return apitypes.TypedData{}, fmt.Errorf("order is required")
	}
	subAccount, err := parseUint("sub_account_id", order.SubAccountID, 64)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	tif, err := TimeInForceCode(order.TimeInForce)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	expiration, err := parseInt64("signature.expiration", order.Signature.Expiration)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	legs := make([]interface{}, 0, len(order.Legs))
	for i, leg := range order.Legs {
		inst, ok := instruments[leg.Instrument]
		if !ok {
			return apitypes.TypedData{}, apperrors.NewValidation("legs[%d]: unknown instrument %q", i, leg.Instrument)
		}
		encoded, err := encodeLeg(i, leg, inst)
		if err != nil {
			return apitypes.TypedData{}, err
		}
		legs = append(legs, encoded)
	}

	message := apitypes.TypedDataMessage{
		"subAccountID": subAccount,
		"isMarket":     order.IsMarket,
		"timeInForce":  big.NewInt(int64(tif)),
		"postOnly":     order.PostOnly,
		"reduceOnly":   order.ReduceOnly,
		"legs":         legs,
		"nonce":        new(big.Int).SetUint64(uint64(order.Signature.Nonce)),
		"expiration":   expiration,
	}

	return apitypes.TypedData{
		Types:       OrderTypes(),
		PrimaryType: PrimaryOrder,
		Domain:      Domain(chainID),
		Message:     message,
	}, nil
}

func encodeLeg(i int, leg model.OrderLeg, inst model.Instrument) (map[string]interface{}, error) {
	assetID, err := parseAssetID(fmt.Sprintf("legs[%d].instrument_hash", i), inst.InstrumentHash)
	if err != nil {
		return nil, err
	}
	size, err := ScaleDecimal(fmt.Sprintf("legs[%d].size", i), leg.Size, inst.BaseDecimals, 64)
	if err != nil {
		return nil, err
	}
	// Market orders may omit the price; it is signed as zero.
	price := new(big.Int)
	if leg.LimitPrice != "" {
		price, err = ScaleDecimal(fmt.Sprintf("legs[%d].limit_price", i), leg.LimitPrice, PriceDecimals, 64)
		if err != nil {
			return nil, err
		}
	}
	// Nested structs must be plain maps for apitypes.
	return map[string]interface{}{
		"assetID":          assetID,
		"contractSize":     size,
		"limitPrice":       price,
		"isBuyingContract": leg.IsBuyingAsset,
	}, nil
}

func TransferTypedData(t *model.Transfer, chainID int64) (apitypes.TypedData, error) {
	if t == nil {
		return apitypes.TypedData{}, fmt.Errorf("transfer is required")
	}
	fromAccount, err := parseAddress("from_account_id", t.FromAccountID)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	fromSub, err := parseUint("from_sub_account_id", t.FromSubAccountID, 64)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	toAccount, err := parseAddress("to_account_id", t.ToAccountID)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	toSub, err := parseUint("to_sub_account_id", t.ToSubAccountID, 64)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	currency, err := CurrencyCode(t.Currency)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	numTokens, err := ScaleDecimal("num_tokens", t.NumTokens, TokenDecimals, 64)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	expiration, err := parseInt64("signature.expiration", t.Signature.Expiration)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types:       TransferTypes(),
		PrimaryType: PrimaryTransfer,
		Domain:      Domain(chainID),
		Message: apitypes.TypedDataMessage{
			"fromAccount":    fromAccount,
			"fromSubAccount": fromSub,
			"toAccount":      toAccount,
			"toSubAccount":   toSub,
			"tokenCurrency":  big.NewInt(int64(currency)),
			"numTokens":      numTokens,
			"nonce":          new(big.Int).SetUint64(uint64(t.Signature.Nonce)),
			"expiration":     expiration,
		},
	}, nil
}

func WithdrawalTypedData(w *model.Withdrawal, chainID int64) (apitypes.TypedData, error) {
	if w == nil {
		return apitypes.TypedData{}, fmt.Errorf("withdrawal is required")
	}
	fromAccount, err := parseAddress("from_account_id", w.FromAccountID)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	toEth, err := parseAddress("to_eth_address", w.ToEthAddress)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	currency, err := CurrencyCode(w.Currency)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	numTokens, err := ScaleDecimal("num_tokens", w.NumTokens, TokenDecimals, 64)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	expiration, err := parseInt64("signature.expiration", w.Signature.Expiration)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types:       WithdrawalTypes(),
		PrimaryType: PrimaryWithdrawal,
		Domain:      Domain(chainID),
		Message: apitypes.TypedDataMessage{
			"fromAccount":   fromAccount,
			"toEthAddress":  toEth,
			"tokenCurrency": big.NewInt(int64(currency)),
			"numTokens":     numTokens,
			"nonce":         new(big.Int).SetUint64(uint64(w.Signature.Nonce)),
			"expiration":    expiration,
		},
	}, nil
}

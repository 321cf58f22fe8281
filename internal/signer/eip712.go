package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Constants for EIP-712
const (
	EIP712DomainName    = "GRVT Exchange"
	EIP712DomainVersion = "0"

	PrimaryOrder      = "Order"
	PrimaryTransfer   = "Transfer"
	PrimaryWithdrawal = "Withdrawal"
)

// Wire scales.
const (
	PriceDecimals int32 = 9
	TokenDecimals int32 = 6 // USDT
)

var domainFields = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
}

var orderFields = []apitypes.Type{
	{Name: "subAccountID", Type: "uint64"},
	{Name: "isMarket", Type: "bool"},
	{Name: "timeInForce", Type: "uint8"},
	{Name: "postOnly", Type: "bool"},
	{Name: "reduceOnly", Type: "bool"},
	{Name: "legs", Type: "OrderLeg[]"},
	{Name: "nonce", Type: "uint32"},
	{Name: "expiration", Type: "int64"},
}

var orderLegFields = []apitypes.Type{
	{Name: "assetID", Type: "uint256"},
	{Name: "contractSize", Type: "uint64"},
	{Name: "limitPrice", Type: "uint64"},
	{Name: "isBuyingContract", Type: "bool"},
}

var transferFields = []apitypes.Type{
	{Name: "fromAccount", Type: "address"},
	{Name: "fromSubAccount", Type: "uint64"},
	{Name: "toAccount", Type: "address"},
	{Name: "toSubAccount", Type: "uint64"},
	{Name: "tokenCurrency", Type: "uint8"},
	{Name: "numTokens", Type: "uint64"},
	{Name: "nonce", Type: "uint32"},
	{Name: "expiration", Type: "int64"},
}

var withdrawalFields = []apitypes.Type{
	{Name: "fromAccount", Type: "address"},
	{Name: "toEthAddress", Type: "address"},
	{Name: "tokenCurrency", Type: "uint8"},
	{Name: "numTokens", Type: "uint64"},
	{Name: "nonce", Type: "uint32"},
	{Name: "expiration", Type: "int64"},
}

// OrderTypes returns the Order/OrderLeg schema. A fresh map is returned each
// call so callers cannot alter the shared field lists through it.
func OrderTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": domainFields,
		PrimaryOrder:   orderFields,
		"OrderLeg":     orderLegFields,
	}
}

func TransferTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain":  domainFields,
		PrimaryTransfer: transferFields,
	}
}

func WithdrawalTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain":    domainFields,
		PrimaryWithdrawal: withdrawalFields,
	}
}

// Domain scopes every signature to one GRVT chain.
func Domain(chainID int64) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:    EIP712DomainName,
		Version: EIP712DomainVersion,
		ChainId: (*math.HexOrDecimal256)(big.NewInt(chainID)),
	}
}

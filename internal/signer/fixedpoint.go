package signer

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// ScaleDecimal converts a decimal string to value*10^decimals as an unsigned
// integer of at most bits width. Digits below the scale and values outside
// the width are rejected instead of truncated.
func ScaleDecimal(field, value string, decimals int32, bits int) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.NewValidation("%s: empty value", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, apperrors.NewValidation("%s: invalid decimal %q", field, value)
	}
	if d.IsNegative() {
		return nil, apperrors.NewValidation("%s: negative value %s", field, value)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, apperrors.NewValidation("%s: %s has more than %d decimal places", field, value, decimals)
	}
	n := scaled.BigInt()
	if n.BitLen() > bits {
		return nil, apperrors.NewValidation("%s: %s overflows uint%d at scale 10^%d", field, value, bits, decimals)
	}
	return n, nil
}

// DescaleInt is the inverse of ScaleDecimal.
func DescaleInt(n *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(n, -decimals).String()
}

func parseUint(field, value string, bits int) (*big.Int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, bits)
	if err != nil {
		return nil, apperrors.NewValidation("%s: %q is not a uint%d", field, value, bits)
	}
	return new(big.Int).SetUint64(n), nil
}

func parseInt64(field, value string) (*big.Int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil, apperrors.NewValidation("%s: %q is not an int64", field, value)
	}
	return big.NewInt(n), nil
}

func parseAssetID(field, value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.NewValidation("%s: empty value", field)
	}
	n, ok := math.ParseBig256(value)
	if !ok || n.Sign() < 0 {
		return nil, apperrors.NewValidation("%s: %q is not a uint256", field, value)
	}
	return n, nil
}

func parseAddress(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return "", apperrors.NewValidation("%s: %q is not an address", field, value)
	}
	return common.HexToAddress(value).Hex(), nil
}

package signer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleDecimalTokens(t *testing.T) {
	n, err := ScaleDecimal("num_tokens", "1.5", TokenDecimals, 64)
	require.NoError(t, err)
	assert.Equal(t, "1500000", n.String())
}

func TestScaleDecimalRoundTrip(t *testing.T) {
	cases := []struct {
		value    string
		decimals int32
	}{
		{"0.01", 9},
		{"123.456", 3},
		{"0.000000001", 9},
		{"42", 0},
		{"18446744073.709551615", 9},
	}
	for _, tc := range cases {
		n, err := ScaleDecimal("size", tc.value, tc.decimals, 64)
		require.NoError(t, err, tc.value)
		back := DescaleInt(n, tc.decimals)
		assert.True(t, decimal.RequireFromString(tc.value).Equal(decimal.RequireFromString(back)), "%s -> %s", tc.value, back)
	}
}

func TestScaleDecimalRejectsExtraPrecision(t *testing.T) {
	_, err := ScaleDecimal("size", "0.0001", 3, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.Validation))
}

func TestScaleDecimalRejectsOverflow(t *testing.T) {
	// max uint64 / 10^9 rounded up
	_, err := ScaleDecimal("limit_price", "18446744074", PriceDecimals, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.Validation))

	n, err := ScaleDecimal("asset", "18446744074", PriceDecimals, 256)
	require.NoError(t, err)
	assert.Equal(t, 0, n.Cmp(new(big.Int).Mul(big.NewInt(18446744074), big.NewInt(1_000_000_000))))
}

func TestScaleDecimalRejectsGarbage(t *testing.T) {
	for _, v := range []string{"", "abc", "-1", "1.2.3"} {
		_, err := ScaleDecimal("size", v, 6, 64)
		assert.True(t, errors.Is(err, apperrors.Validation), v)
	}
}

func TestParseAssetID(t *testing.T) {
	n, err := parseAssetID("hash", "0x030501")
	require.NoError(t, err)
	assert.Equal(t, int64(0x030501), n.Int64())

	_, err = parseAssetID("hash", "")
	assert.Error(t, err)
	_, err = parseAssetID("hash", "0xzz")
	assert.Error(t, err)
}

package main

import (
	"testing"

	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedData_Transfer(t *testing.T) {
	raw := []byte(`{
		"from_account_id": "0x0000000000000000000000000000000000000001",
		"from_sub_account_id": "1",
		"to_account_id": "0x0000000000000000000000000000000000000001",
		"to_sub_account_id": "2",
		"currency": "USDT",
		"num_tokens": "1.5",
		"signature": {"nonce": 7, "expiration": "1900000000000000000"}
	}`)

	data, sig, err := typedData("transfer", raw, &config.Config{}, 326)
	require.NoError(t, err)
	assert.Equal(t, signer.PrimaryTransfer, data.PrimaryType)
	assert.Equal(t, uint32(7), sig.Nonce)
	assert.Empty(t, sig.R)
}

func TestTypedData_UnknownKind(t *testing.T) {
	_, _, err := typedData("cancel", []byte(`{}`), &config.Config{}, 326)
	assert.Error(t, err)
}

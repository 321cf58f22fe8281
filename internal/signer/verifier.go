package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/haeminmoon/grvtgate/internal/model"
)

// TypedDataHash returns the EIP-712 digest that gets signed.
func TypedDataHash(data apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// RecoverSigner recovers the address that produced sig over data.
func RecoverSigner(data apitypes.TypedData, sig model.Signature) (common.Address, error) {
	hash, err := TypedDataHash(data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	r, err := hexutil.Decode(sig.R)
	if err != nil || len(r) != 32 {
		return common.Address{}, fmt.Errorf("invalid r")
	}
	s, err := hexutil.Decode(sig.S)
	if err != nil || len(s) != 32 {
		return common.Address{}, fmt.Errorf("invalid s")
	}
	v := sig.V
	// Normalize V to 0/1 for recovery.
	if v >= 27 {
		v -= 27
	}
	if v != 0 && v != 1 {
		return common.Address{}, fmt.Errorf("invalid v")
	}
	raw := make([]byte, 65)
	copy(raw[0:32], r)
	copy(raw[32:64], s)
	raw[64] = byte(v)

	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature checks that sig was produced by its declared signer.
func VerifySignature(data apitypes.TypedData, sig model.Signature) error {
	if !common.IsHexAddress(sig.Signer) {
		return fmt.Errorf("invalid signer address")
	}
	recovered, err := RecoverSigner(data, sig)
	if err != nil {
		return err
	}
	if recovered != common.HexToAddress(sig.Signer) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

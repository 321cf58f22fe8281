package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// KeySigner is the signing capability the engine depends on: it signs an
// EIP-712 message and returns the 65-byte [R || S || V] signature.
type KeySigner interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// Wallet is an in-process KeySigner backed by a secp256k1 private key.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewWallet(privateKeyHex string) (*Wallet, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTypedData hashes per EIP-712 and signs. V is returned as 27/28.
func (w *Wallet) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	signature, err := crypto.Sign(hash, w.key)
	if err != nil {
		return nil, err
	}
	// crypto.Sign returns V as 0/1.
	if signature[64] < 27 {
		signature[64] += 27
	}
	return signature, nil
}

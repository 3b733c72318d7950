// Package testutil holds signing fixtures shared by package tests.
package testutil

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet is a throwaway secp256k1 key that signs the way browser wallets do.
type Wallet struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

func NewWallet(t testing.TB) *Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return &Wallet{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Hex returns the checksummed address.
func (w *Wallet) Hex() string { return w.Address.Hex() }

// SignDigest signs a 32-byte digest and returns r||s||v with v in {27, 28}.
func (w *Wallet) SignDigest(t testing.TB, digest []byte) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest, w.Key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig[64] += 27
	return sig
}

// SignPersonal signs message as personal_sign (EIP-191).
func (w *Wallet) SignPersonal(t testing.TB, message []byte) string {
	t.Helper()
	return hexutil.Encode(w.SignDigest(t, accounts.TextHash(message)))
}

// SignTypedData signs the EIP-712 hash of td.
func (w *Wallet) SignTypedData(t testing.TB, td apitypes.TypedData) string {
	t.Helper()
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		t.Fatalf("TypedDataAndHash: %v", err)
	}
	return hexutil.Encode(w.SignDigest(t, digest))
}

// SignSafeHash signs a Safe transaction hash directly (v in {27, 28}).
func (w *Wallet) SignSafeHash(t testing.TB, safeTxHash common.Hash) string {
	t.Helper()
	return hexutil.Encode(w.SignDigest(t, safeTxHash.Bytes()))
}

// EthSignSafeHash signs a Safe transaction hash through eth_sign (v in {31, 32}).
func (w *Wallet) EthSignSafeHash(t testing.TB, safeTxHash common.Hash) string {
	t.Helper()
	sig := w.SignDigest(t, accounts.TextHash(safeTxHash.Bytes()))
	sig[64] += 4
	return hexutil.Encode(sig)
}

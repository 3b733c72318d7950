package auth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidSignature = errors.New("Invalid signature")
	ErrSignerMismatch   = errors.New("Signature does not match address")
)

// Verifier checks that signature over message was produced by address.
type Verifier interface {
	Verify(message string, signature []byte, address common.Address) error
}

// PersonalSignVerifier verifies EIP-191 personal_sign signatures, the
// format wallets produce for SIWE messages.
type PersonalSignVerifier struct{}

func (PersonalSignVerifier) Verify(message string, signature []byte, address common.Address) error {
	signer, err := RecoverPersonal([]byte(message), signature)
	if err != nil {
		return err
	}
	if signer != address {
		return ErrSignerMismatch
	}
	return nil
}

// DecodeSignature parses a 0x-prefixed 65-byte r||s||v signature.
func DecodeSignature(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	sig, err := hexutil.Decode(raw)
	if err != nil || len(sig) != crypto.SignatureLength {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}

// RecoverPersonal returns the signer of an EIP-191 personal message.
func RecoverPersonal(message, signature []byte) (common.Address, error) {
	return recoverDigest(accounts.TextHash(message), signature, 27)
}

// RecoverDigest returns the signer of a raw 32-byte digest, e.g. an EIP-712 hash.
func RecoverDigest(digest, signature []byte) (common.Address, error) {
	return recoverDigest(digest, signature, 27)
}

// RecoverSafeSignature returns the owner that signed a Safe transaction hash.
// v of 27/28 is a signature of the hash itself; 31/32 marks an eth_sign
// signature of the hash wrapped as a personal message. Contract and
// pre-approved signatures (v of 0 or 1) are not recoverable here.
func RecoverSafeSignature(safeTxHash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	switch v := signature[64]; {
	case v == 27 || v == 28:
		return recoverDigest(safeTxHash.Bytes(), signature, 27)
	case v == 31 || v == 32:
		return recoverDigest(accounts.TextHash(safeTxHash.Bytes()), signature, 31)
	default:
		return common.Address{}, ErrInvalidSignature
	}
}

func recoverDigest(digest, signature []byte, vOffset byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength || len(digest) != 32 {
		return common.Address{}, ErrInvalidSignature
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= vOffset {
		sig[64] -= vOffset
	}
	if sig[64] > 1 {
		return common.Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

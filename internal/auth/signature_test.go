package auth

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"safe-gateway-lite/internal/testutil"
)

func mustDecode(t *testing.T, raw string) []byte {
	t.Helper()
	sig, err := DecodeSignature(raw)
	if err != nil {
		t.Fatalf("DecodeSignature: %v", err)
	}
	return sig
}

func TestDecodeSignature(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 64) + "1b"
	if _, err := DecodeSignature(valid); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if _, err := DecodeSignature(strings.TrimPrefix(valid, "0x")); err != nil {
		t.Fatalf("expected prefix to be optional, got %v", err)
	}

	for _, raw := range []string{"", "0x", "0x1234", valid + "00", "0x" + strings.Repeat("zz", 65)} {
		if _, err := DecodeSignature(raw); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("DecodeSignature(%q): expected ErrInvalidSignature, got %v", raw, err)
		}
	}
}

func TestPersonalSignVerifier(t *testing.T) {
	w := testutil.NewWallet(t)
	other := testutil.NewWallet(t)
	msg := "hello safe"
	sig := mustDecode(t, w.SignPersonal(t, []byte(msg)))

	if err := (PersonalSignVerifier{}).Verify(msg, sig, w.Address); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := (PersonalSignVerifier{}).Verify(msg, sig, other.Address); !errors.Is(err, ErrSignerMismatch) {
		t.Fatalf("expected ErrSignerMismatch, got %v", err)
	}
	if err := (PersonalSignVerifier{}).Verify(msg+"!", sig, w.Address); !errors.Is(err, ErrSignerMismatch) {
		t.Fatalf("expected ErrSignerMismatch for tampered message, got %v", err)
	}
}

func TestRecoverSafeSignature(t *testing.T) {
	w := testutil.NewWallet(t)
	hash := crypto.Keccak256Hash([]byte("safe tx"))

	direct := mustDecode(t, w.SignSafeHash(t, hash))
	got, err := RecoverSafeSignature(hash, direct)
	if err != nil || got != w.Address {
		t.Fatalf("direct: expected %s, got %s (%v)", w.Address.Hex(), got.Hex(), err)
	}

	ethSign := mustDecode(t, w.EthSignSafeHash(t, hash))
	if v := ethSign[64]; v != 31 && v != 32 {
		t.Fatalf("expected eth_sign v in {31,32}, got %d", v)
	}
	got, err = RecoverSafeSignature(hash, ethSign)
	if err != nil || got != w.Address {
		t.Fatalf("eth_sign: expected %s, got %s (%v)", w.Address.Hex(), got.Hex(), err)
	}

	contract := append([]byte(nil), direct...)
	contract[64] = 0
	if _, err := RecoverSafeSignature(hash, contract); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for v=0, got %v", err)
	}
}

func TestRecoverTypedData_Delegate(t *testing.T) {
	w := testutil.NewWallet(t)
	delegate := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	td := DelegateTypedData(big.NewInt(1), delegate, 480000)

	got, err := RecoverTypedData(td, mustDecode(t, w.SignTypedData(t, td)))
	if err != nil {
		t.Fatalf("RecoverTypedData: %v", err)
	}
	if got != w.Address {
		t.Fatalf("expected %s, got %s", w.Address.Hex(), got.Hex())
	}
	padded, ok := td.Message["delegateAddress"].([]byte)
	if !ok || len(padded) != 32 || hexutil.Encode(padded[:20]) != strings.ToLower(delegate.Hex()) {
		t.Fatalf("expected delegate right-padded to 32 bytes, got %x", padded)
	}
}

func TestRecoverWindowed(t *testing.T) {
	w := testutil.NewWallet(t)
	now := time.Unix(1_700_000_000, 0)
	chainID := big.NewInt(11155111)
	delegate := common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	build := func(totp int64) apitypes.TypedData { return DelegateTypedData(chainID, delegate, totp) }
	isSigner := func(a common.Address) bool { return a == w.Address }

	cases := []struct {
		name   string
		offset int64
		ok     bool
	}{
		{"current window", 0, true},
		{"previous window", -1, true},
		{"two windows old", -2, false},
		{"next window", 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := mustDecode(t, w.SignTypedData(t, build(TOTP(now)+tc.offset)))
			got, err := RecoverWindowed(now, sig, build, isSigner)
			if tc.ok {
				if err != nil || got != w.Address {
					t.Fatalf("expected %s, got %s (%v)", w.Address.Hex(), got.Hex(), err)
				}
				return
			}
			if !errors.Is(err, ErrSignerMismatch) {
				t.Fatalf("expected ErrSignerMismatch, got %v", err)
			}
		})
	}
}

func TestTOTP(t *testing.T) {
	if got := TOTP(time.Unix(7199, 0)); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := TOTP(time.Unix(7200, 0)); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

package auth

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TOTPPeriod is the width of one replay window for signed requests.
const TOTPPeriod = time.Hour

const typedDataDomainName = "Safe Transaction Service"

// TOTP returns the window counter for t: unix seconds / 3600.
func TOTP(t time.Time) int64 {
	return t.Unix() / int64(TOTPPeriod/time.Second)
}

func domain(chainID *big.Int, verifyingContract *common.Address) (apitypes.TypedDataDomain, []apitypes.Type) {
	d := apitypes.TypedDataDomain{
		Name:    typedDataDomainName,
		Version: "1.0",
		ChainId: (*math.HexOrDecimal256)(chainID),
	}
	fields := []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	}
	if verifyingContract != nil {
		d.VerifyingContract = verifyingContract.Hex()
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	return d, fields
}

// DelegateTypedData is the payload a delegator signs to add or remove delegate.
func DelegateTypedData(chainID *big.Int, delegate common.Address, totp int64) apitypes.TypedData {
	d, domainFields := domain(chainID, nil)
	padded := common.RightPadBytes(delegate.Bytes(), 32)
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainFields,
			"Delegate": {
				{Name: "delegateAddress", Type: "bytes32"},
				{Name: "totp", Type: "uint256"},
			},
		},
		PrimaryType: "Delegate",
		Domain:      d,
		Message: apitypes.TypedDataMessage{
			"delegateAddress": padded,
			"totp":            big.NewInt(totp),
		},
	}
}

// DeleteRequestTypedData is the payload a proposer signs to delete a queued transaction.
func DeleteRequestTypedData(chainID *big.Int, safe common.Address, safeTxHash common.Hash, totp int64) apitypes.TypedData {
	d, domainFields := domain(chainID, &safe)
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainFields,
			"DeleteRequest": {
				{Name: "safeTxHash", Type: "bytes32"},
				{Name: "totp", Type: "uint256"},
			},
		},
		PrimaryType: "DeleteRequest",
		Domain:      d,
		Message: apitypes.TypedDataMessage{
			"safeTxHash": safeTxHash.Bytes(),
			"totp":       big.NewInt(totp),
		},
	}
}

// RecoverTypedData returns the signer of typed data.
func RecoverTypedData(td apitypes.TypedData, signature []byte) (common.Address, error) {
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverDigest(digest, signature)
}

// RecoverWindowed recovers the signer of the typed data built for the
// current TOTP window and, failing an accepted signer, for the previous one.
// accept decides which recovered addresses are authorised.
func RecoverWindowed(now time.Time, signature []byte, build func(totp int64) apitypes.TypedData, accept func(common.Address) bool) (common.Address, error) {
	current := TOTP(now)
	for _, totp := range []int64{current, current - 1} {
		signer, err := RecoverTypedData(build(totp), signature)
		if err != nil {
			continue
		}
		if accept(signer) {
			return signer, nil
		}
	}
	return common.Address{}, ErrSignerMismatch
}

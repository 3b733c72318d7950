package txengine

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/model"
)

// ProposeInput carries a Safe transaction as submitted by a wallet.
// Amounts and gas values are decimal strings.
type ProposeInput struct {
	SafeTxHash     string
	To             string
	Value          string
	Data           string
	Nonce          string
	Operation      int
	SafeTxGas      string
	BaseGas        string
	GasPrice       string
	GasToken       string
	RefundReceiver string
	Sender         string
	Signature      string
	Origin         *string
}

func parseHash(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, apperr.Wrapf(apperr.ErrInvalidInput, "invalid safeTxHash %q", raw)
	}
	return common.BytesToHash(b), nil
}

func decimalField(name, raw string) (string, error) {
	if raw == "" {
		return "0", nil
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return "", apperr.Wrapf(apperr.ErrInvalidInput, "%s must be a decimal uint256", name)
	}
	return v.Dec(), nil
}

// normalize validates in and returns the transaction it describes, with
// addresses checksummed and numbers in canonical decimal form.
func (in ProposeInput) normalize(chainID, safe string) (model.Transaction, common.Hash, error) {
	tx := model.Transaction{ChainID: chainID, Safe: safe, Origin: in.Origin}

	hash, err := parseHash(in.SafeTxHash)
	if err != nil {
		return tx, hash, err
	}
	tx.SafeTxHash = hash.Hex()

	if tx.To, err = address.Checksum(in.To); err != nil {
		return tx, hash, err
	}
	if tx.Proposer, err = address.Checksum(in.Sender); err != nil {
		return tx, hash, err
	}
	tx.GasToken, tx.RefundReceiver = common.Address{}.Hex(), common.Address{}.Hex()
	if in.GasToken != "" {
		if tx.GasToken, err = address.Checksum(in.GasToken); err != nil {
			return tx, hash, err
		}
	}
	if in.RefundReceiver != "" {
		if tx.RefundReceiver, err = address.Checksum(in.RefundReceiver); err != nil {
			return tx, hash, err
		}
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *string
	}{
		{"value", in.Value, &tx.Value},
		{"safeTxGas", in.SafeTxGas, &tx.SafeTxGas},
		{"baseGas", in.BaseGas, &tx.BaseGas},
		{"gasPrice", in.GasPrice, &tx.GasPrice},
	} {
		if *f.dst, err = decimalField(f.name, f.raw); err != nil {
			return tx, hash, err
		}
	}

	if tx.Nonce, err = strconv.ParseUint(in.Nonce, 10, 64); err != nil {
		return tx, hash, apperr.Wrap(apperr.ErrInvalidInput, "nonce must be a decimal uint64")
	}

	switch model.Operation(in.Operation) {
	case model.OperationCall, model.OperationDelegateCall:
		tx.Operation = model.Operation(in.Operation)
	default:
		return tx, hash, apperr.Wrap(apperr.ErrInvalidInput, "operation must be 0 (call) or 1 (delegatecall)")
	}

	tx.Data = "0x"
	if in.Data != "" && in.Data != "0x" {
		data, err := hexutil.Decode(in.Data)
		if err != nil {
			return tx, hash, apperr.Wrap(apperr.ErrInvalidInput, "data must be 0x-prefixed hex")
		}
		tx.Data = hexutil.Encode(data)
	}
	return tx, hash, nil
}

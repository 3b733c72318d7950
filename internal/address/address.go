// Package address normalizes EVM addresses to their EIP-55 checksummed form.
package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"safe-gateway-lite/internal/apperr"
)

// Parse validates raw as a 20-byte hex address, with or without 0x prefix
// and in any letter case.
func Parse(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, apperr.Wrapf(apperr.ErrInvalidAddress, "invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// Checksum returns the canonical checksummed form of raw.
func Checksum(raw string) (string, error) {
	addr, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// ChecksumAll applies Checksum to every entry, failing on the first invalid one.
func ChecksumAll(raws []string) ([]string, error) {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		v, err := Checksum(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Equal compares two addresses ignoring letter case. Invalid input is never equal.
func Equal(a, b string) bool {
	pa, err := Parse(a)
	if err != nil {
		return false
	}
	pb, err := Parse(b)
	if err != nil {
		return false
	}
	return pa == pb
}

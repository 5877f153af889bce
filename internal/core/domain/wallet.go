package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// WatchedAddress is the single deposit address monitored for incoming transfers.
// It is fixed for the lifetime of the process.
type WatchedAddress struct {
	address common.Address
}

// NewWatchedAddress returns a WatchedAddress for the given account.
func NewWatchedAddress(addr common.Address) WatchedAddress {
	return WatchedAddress{address: addr}
}

// Address returns the underlying account.
func (w WatchedAddress) Address() common.Address {
	return w.address
}

// Matches reports whether raw refers to the watched account. Comparison is
// done on the decoded 20 bytes, so checksum and case differences are ignored.
func (w WatchedAddress) Matches(raw string) bool {
	addr, ok := ParseAddress(raw)
	if !ok {
		return false
	}
	return addr == w.address
}

func (w WatchedAddress) String() string {
	return w.address.Hex()
}

// ParseAddress decodes a hex account address, accepting any letter case.
func ParseAddress(raw string) (common.Address, bool) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// SameAddress reports whether a and b decode to the same account.
func SameAddress(a, b string) bool {
	x, ok := ParseAddress(a)
	if !ok {
		return false
	}
	y, ok := ParseAddress(b)
	if !ok {
		return false
	}
	return x == y
}

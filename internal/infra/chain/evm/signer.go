package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// FlashbotsSignatureHeader carries the request signature expected by relays.
const FlashbotsSignatureHeader = "X-Flashbots-Signature"

// Signer holds the deposit address key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the address controlled by the key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx for chainID and returns the signed transaction with its
// RLP/typed-envelope encoding.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, []byte, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, nil, fmt.Errorf("sign tx: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encode tx: %w", err)
	}
	return signed, raw, nil
}

// FlashbotsHeader signs a relay request body: an EIP-191 signature over the
// hex keccak256 of the body, formatted as address:signature.
func (s *Signer) FlashbotsHeader(body []byte) (map[string]string, error) {
	digest := crypto.Keccak256Hash(body).Hex()
	sig, err := crypto.Sign(accounts.TextHash([]byte(digest)), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign relay request: %w", err)
	}
	return map[string]string{
		FlashbotsSignatureHeader: s.address.Hex() + ":" + hexutil.Encode(sig),
	}, nil
}

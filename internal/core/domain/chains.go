package domain

import (
	"math/big"
	"strconv"
)

type ChainID uint64
type ChainName string

const (
	// Chain IDs
	ChainIDEthereum ChainID = 1
	ChainIDGoerli   ChainID = 5
	ChainIDSepolia  ChainID = 11155111

	// Chain Names (relay network names)
	ChainNameEthereum ChainName = "mainnet"
	ChainNameGoerli   ChainName = "goerli"
	ChainNameSepolia  ChainName = "sepolia"
)

// ChainIDToName maps ChainID to its network name.
var ChainIDToName = map[ChainID]ChainName{
	ChainIDEthereum: ChainNameEthereum,
	ChainIDGoerli:   ChainNameGoerli,
	ChainIDSepolia:  ChainNameSepolia,
}

// BigInt returns the chain id in the form used for transaction signing.
func (c ChainID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(c))
}

func (c ChainID) String() string {
	if name, ok := ChainIDToName[c]; ok {
		return string(name)
	}
	return strconv.FormatUint(uint64(c), 10)
}

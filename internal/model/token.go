package model

import "github.com/ethereum/go-ethereum/common"

// TokenInfo captures ERC20 metadata. Immutable once fetched; Decimals governs
// every amount conversion for the token.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
}

package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer builds, signs, and submits transactions with a local ECDSA key.
type Signer struct {
	client  *Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
	from    common.Address
}

// NewSigner derives a signer from a hex-encoded private key.
func NewSigner(ctx context.Context, client *Client, hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	return &Signer{
		client:  client,
		key:     key,
		chainID: chainID,
		from:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// From returns the signing address.
func (s *Signer) From() common.Address {
	return s.from
}

// Send signs and submits a contract call with the given calldata, returning
// the transaction hash. Gas is estimated against the pending state, so a call
// that would revert fails here instead of on-chain.
func (s *Signer) Send(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, to, new(big.Int), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	return signed.Hash(), nil
}

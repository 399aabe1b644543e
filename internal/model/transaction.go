package model

import "github.com/ethereum/go-ethereum/common"

// TxKind distinguishes the two write calls issued by the trade orchestrator.
type TxKind string

const (
	TxApprove TxKind = "approve"
	TxSwap    TxKind = "swap"
)

// TxStatus is the lifecycle of a submitted transaction.
type TxStatus string

const (
	TxSubmitted TxStatus = "submitted"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// PendingTransaction tracks one submitted transaction until the chain
// includes it.
type PendingTransaction struct {
	Kind   TxKind
	Hash   common.Hash
	Status TxStatus
}

// TransactionRecord is the journal representation of a submitted transaction.
// Big integers are serialized as strings.
type TransactionRecord struct {
	ChainID     uint64 `json:"chain_id"`
	Kind        string `json:"kind"`
	TxHash      string `json:"tx_hash"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out,omitempty"`
	PoolIndex   uint64 `json:"pool_index"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	SubmittedAt string `json:"submitted_at"`
}

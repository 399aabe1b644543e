package storage

import "swapscope/internal/model"

// Journal defines a sink for trade transaction records.
type Journal interface {
	PutTransactions(records []model.TransactionRecord) error
}

package ledger

import (
	"context"

	"portfoliotracker/src/model"
)

// Store is the persistence the ledger needs for one (portfolio, asset) pair.
type Store interface {
	LoadAll(ctx context.Context, portfolioID int64, assetID string) ([]model.Transaction, error)
	InsertBatch(ctx context.Context, txs []model.Transaction) (int, error)
	// UpdateByID overwrites the mutable fields of one record. It returns
	// ErrTransactionNotFound when no record has the given id.
	UpdateByID(ctx context.Context, id int64, update model.TransactionUpdate) error
	PersistSnapshot(ctx context.Context, portfolioID int64, assetID string, snapshot model.PositionSnapshot) error
	// FindByID returns (nil, nil) when the record does not exist.
	FindByID(ctx context.Context, id int64) (*model.Transaction, error)
	// InPairTx runs fn inside one storage transaction holding the exclusive
	// lock of the pair. fn must only use the Store it is given.
	InPairTx(ctx context.Context, portfolioID int64, assetID string, fn func(Store) error) error
}

// IDGenerator hands out unique ids for new records.
type IDGenerator interface {
	Generate() (int64, error)
}

// Publisher receives every snapshot after it has been committed.
type Publisher interface {
	Publish(portfolioID int64, assetID string, snapshot model.PositionSnapshot)
}

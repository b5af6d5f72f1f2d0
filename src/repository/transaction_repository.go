package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfoliotracker/src/database"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/model"
)

const insertBatchSize = 200

var snapshotColumns = []string{
	"holding_amount", "total_cost", "avg_buy_price",
	"sold_amount", "total_revenue", "avg_sell_price", "updated_at",
}

// TransactionRepository is the gorm backed ledger store.
type TransactionRepository struct {
	db *gorm.DB
}

var _ ledger.Store = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new repository instance using the main read/write database.
func NewTransactionRepository() *TransactionRepository {
	logger.WithField("component", "TransactionRepository").
		Info("Creating new TransactionRepository with MainDB")

	return &TransactionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TransactionRepository) WithDB(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// LoadAll returns every transaction of a pair ordered by execution time.
func (r *TransactionRepository) LoadAll(
	ctx context.Context,
	portfolioID int64,
	assetID string,
) ([]model.Transaction, error) {

	fields := logger.Fields{
		"repo":         "TransactionRepository",
		"op":           "LoadAll",
		"portfolio_id": portfolioID,
		"asset_id":     assetID,
	}
	logger.WithFields(fields).Debug("Loading ledger")

	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND asset_id = ?", portfolioID, assetID).
		Order("executed_at, id").
		Find(&txs).Error
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to load ledger")
		return nil, err
	}

	return txs, nil
}

// ListByPair returns the transactions of a pair, newest first.
func (r *TransactionRepository) ListByPair(
	ctx context.Context,
	portfolioID int64,
	assetID string,
) ([]model.Transaction, error) {

	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND asset_id = ?", portfolioID, assetID).
		Order("executed_at DESC, id DESC").
		Find(&txs).Error
	if err != nil {
		logger.WithFields(logger.Fields{
			"repo":         "TransactionRepository",
			"op":           "ListByPair",
			"portfolio_id": portfolioID,
			"asset_id":     assetID,
		}).WithError(err).Error("Failed to list transactions")
		return nil, err
	}

	return txs, nil
}

// InsertBatch creates all given transactions. Their ids must already be set.
func (r *TransactionRepository) InsertBatch(
	ctx context.Context,
	txs []model.Transaction,
) (int, error) {

	if len(txs) == 0 {
		return 0, nil
	}

	fields := logger.Fields{
		"repo":  "TransactionRepository",
		"op":    "InsertBatch",
		"count": len(txs),
	}
	logger.WithFields(fields).Debug("Inserting transactions")

	result := r.db.WithContext(ctx).CreateInBatches(&txs, insertBatchSize)
	if result.Error != nil {
		logger.WithFields(fields).WithError(result.Error).Error("Failed to insert transactions")
		return 0, result.Error
	}

	logger.WithFields(fields).Info("Transactions inserted")
	return int(result.RowsAffected), nil
}

// UpdateByID overwrites the non nil fields of update on one transaction.
func (r *TransactionRepository) UpdateByID(
	ctx context.Context,
	id int64,
	update model.TransactionUpdate,
) error {

	fields := logger.Fields{
		"repo": "TransactionRepository",
		"op":   "UpdateByID",
		"id":   id,
	}

	columns := update.Columns()
	if len(columns) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		logger.WithFields(fields).WithError(result.Error).Error("Failed to update transaction")
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.WithFields(fields).Info("Transaction not found")
		return ledger.ErrTransactionNotFound
	}

	logger.WithFields(fields).Debug("Transaction updated")
	return nil
}

// PersistSnapshot upserts the portfolio_assets row of a pair.
func (r *TransactionRepository) PersistSnapshot(
	ctx context.Context,
	portfolioID int64,
	assetID string,
	snapshot model.PositionSnapshot,
) error {

	row := model.PortfolioAsset{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Snapshot:    snapshot,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns(snapshotColumns),
		}).
		Create(&row).Error
	if err != nil {
		logger.WithFields(logger.Fields{
			"repo":         "TransactionRepository",
			"op":           "PersistSnapshot",
			"portfolio_id": portfolioID,
			"asset_id":     assetID,
		}).WithError(err).Error("Failed to persist position snapshot")
		return err
	}

	return nil
}

// FindByID fetches a single transaction by its primary ID.
// Returns (nil, nil) if the transaction is not found.
func (r *TransactionRepository) FindByID(
	ctx context.Context,
	id int64,
) (*model.Transaction, error) {

	var tx model.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(logger.Fields{
			"repo": "TransactionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch transaction by ID")
		return nil, err
	}

	return &tx, nil
}

// InPairTx runs fn inside one database transaction. On postgres the
// transaction first takes an advisory lock keyed by the pair, so concurrent
// writers in other processes queue behind it until commit or rollback.
func (r *TransactionRepository) InPairTx(
	ctx context.Context,
	portfolioID int64,
	assetID string,
	fn func(ledger.Store) error,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == database.DriverPostgres {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", PairLockKey(portfolioID, assetID)).Error; err != nil {
				return fmt.Errorf("acquire pair lock: %w", err)
			}
		}
		return fn(r.WithDB(tx))
	})
}

// PairLockKey maps a pair onto the 64-bit key space of postgres advisory locks.
func PairLockKey(portfolioID int64, assetID string) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", portfolioID, assetID)
	return int64(h.Sum64())
}

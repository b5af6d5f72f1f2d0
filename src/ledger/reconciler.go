package ledger

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/mapper"
	"portfoliotracker/src/model"
)

// ReconcileSummary reports what one import did to the ledger of a pair.
type ReconcileSummary struct {
	Inserted int                    `json:"inserted"`
	Updated  int                    `json:"updated"`
	Snapshot model.PositionSnapshot `json:"snapshot"`
}

// Reconciler owns every write to the ledger. Each operation runs under the
// pair lock and inside one storage transaction which also persists the
// recomputed snapshot.
type Reconciler struct {
	store     Store
	ids       IDGenerator
	locks     *PairLocks
	publisher Publisher
}

// NewReconciler builds a reconciler. publisher may be nil.
func NewReconciler(store Store, ids IDGenerator, publisher Publisher) *Reconciler {
	logger.WithField("component", "Reconciler").
		Info("Creating new Reconciler")

	return &Reconciler{
		store:     store,
		ids:       ids,
		locks:     NewPairLocks(),
		publisher: publisher,
	}
}

// Reconcile imports a batch of raw records for one pair. Records are matched
// to existing ones by external id: matches are overwritten in place, the
// rest are inserted with fresh ids. Nothing is written when any record fails
// to parse.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	portfolioID int64,
	assetID string,
	raws []externalmodel.RawTransaction,
) (ReconcileSummary, error) {

	fields := logger.Fields{
		"component":    "Reconciler",
		"op":           "Reconcile",
		"portfolio_id": portfolioID,
		"asset_id":     assetID,
		"records":      len(raws),
	}
	logger.WithFields(fields).Debug("Reconciling import batch")

	candidates, err := parseBatch(raws, portfolioID, assetID)
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("Import batch rejected")
		return ReconcileSummary{}, err
	}

	var summary ReconcileSummary
	err = r.withPair(ctx, portfolioID, assetID, func(store Store) error {
		existing, err := store.LoadAll(ctx, portfolioID, assetID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}

		byExternalID := make(map[string]int, len(existing))
		for i, tx := range existing {
			if tx.ExternalID != nil {
				byExternalID[*tx.ExternalID] = i
			}
		}

		var inserts []model.Transaction
		updated := 0
		for _, candidate := range candidates {
			if i, ok := byExternalID[*candidate.ExternalID]; ok {
				update := model.UpdateFromTransaction(candidate)
				if err := store.UpdateByID(ctx, existing[i].ID, update); err != nil {
					return fmt.Errorf("update transaction %d: %w", existing[i].ID, err)
				}
				update.Apply(&existing[i])
				updated++
				continue
			}

			id, err := r.ids.Generate()
			if err != nil {
				return fmt.Errorf("allocate transaction id: %w", err)
			}
			candidate.ID = id
			inserts = append(inserts, candidate)
		}

		inserted := 0
		if len(inserts) > 0 {
			inserted, err = store.InsertBatch(ctx, inserts)
			if err != nil {
				return fmt.Errorf("insert transactions: %w", err)
			}
		}

		snapshot, err := recompute(ctx, store, portfolioID, assetID, append(existing, inserts...))
		if err != nil {
			return err
		}

		summary = ReconcileSummary{Inserted: inserted, Updated: updated, Snapshot: snapshot}
		return nil
	})
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to reconcile import batch")
		return ReconcileSummary{}, err
	}

	r.publish(portfolioID, assetID, summary.Snapshot)

	logger.WithFields(fields).WithFields(logger.Fields{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
	}).Info("Import batch reconciled")

	return summary, nil
}

// Record adds a manually entered transaction. Manual records never carry an
// external id, so imports never match them.
func (r *Reconciler) Record(ctx context.Context, tx model.Transaction) (model.Transaction, model.PositionSnapshot, error) {
	fields := logger.Fields{
		"component":    "Reconciler",
		"op":           "Record",
		"portfolio_id": tx.PortfolioID,
		"asset_id":     tx.AssetID,
		"tx_type":      tx.TxType,
	}

	if err := validateTransaction(tx); err != nil {
		logger.WithFields(fields).WithError(err).Warn("Rejected manual transaction")
		return model.Transaction{}, model.PositionSnapshot{}, err
	}

	id, err := r.ids.Generate()
	if err != nil {
		return model.Transaction{}, model.PositionSnapshot{}, fmt.Errorf("allocate transaction id: %w", err)
	}
	tx.ID = id
	tx.ExternalID = nil

	var snapshot model.PositionSnapshot
	err = r.withPair(ctx, tx.PortfolioID, tx.AssetID, func(store Store) error {
		if _, err := store.InsertBatch(ctx, []model.Transaction{tx}); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		all, err := store.LoadAll(ctx, tx.PortfolioID, tx.AssetID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}

		snapshot, err = recompute(ctx, store, tx.PortfolioID, tx.AssetID, all)
		return err
	})
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to record transaction")
		return model.Transaction{}, model.PositionSnapshot{}, err
	}

	r.publish(tx.PortfolioID, tx.AssetID, snapshot)
	logger.WithFields(fields).WithField("id", tx.ID).Info("Transaction recorded")

	return tx, snapshot, nil
}

// Amend overwrites the mutable fields of one existing transaction and
// recomputes the position of its pair.
func (r *Reconciler) Amend(ctx context.Context, id int64, update model.TransactionUpdate) (model.Transaction, model.PositionSnapshot, error) {
	fields := logger.Fields{
		"component": "Reconciler",
		"op":        "Amend",
		"id":        id,
	}

	if update.IsEmpty() {
		return model.Transaction{}, model.PositionSnapshot{}, fmt.Errorf("%w: nothing to update", ErrInvalidTransaction)
	}
	if err := validateUpdate(update); err != nil {
		logger.WithFields(fields).WithError(err).Warn("Rejected transaction update")
		return model.Transaction{}, model.PositionSnapshot{}, err
	}

	// the pair of a transaction never changes, so it can be read before locking
	current, err := r.store.FindByID(ctx, id)
	if err != nil {
		return model.Transaction{}, model.PositionSnapshot{}, fmt.Errorf("find transaction %d: %w", id, err)
	}
	if current == nil {
		return model.Transaction{}, model.PositionSnapshot{}, ErrTransactionNotFound
	}

	var (
		amended  model.Transaction
		snapshot model.PositionSnapshot
	)
	err = r.withPair(ctx, current.PortfolioID, current.AssetID, func(store Store) error {
		if err := store.UpdateByID(ctx, id, update); err != nil {
			return err
		}

		all, err := store.LoadAll(ctx, current.PortfolioID, current.AssetID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		for _, tx := range all {
			if tx.ID == id {
				amended = tx
				break
			}
		}

		snapshot, err = recompute(ctx, store, current.PortfolioID, current.AssetID, all)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrTransactionNotFound) {
			logger.WithFields(fields).WithError(err).Error("Failed to amend transaction")
		}
		return model.Transaction{}, model.PositionSnapshot{}, err
	}

	r.publish(current.PortfolioID, current.AssetID, snapshot)
	logger.WithFields(fields).Info("Transaction amended")

	return amended, snapshot, nil
}

// Rebuild recomputes the position of a pair from its full ledger.
func (r *Reconciler) Rebuild(ctx context.Context, portfolioID int64, assetID string) (model.PositionSnapshot, error) {
	var snapshot model.PositionSnapshot
	err := r.withPair(ctx, portfolioID, assetID, func(store Store) error {
		all, err := store.LoadAll(ctx, portfolioID, assetID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		snapshot, err = recompute(ctx, store, portfolioID, assetID, all)
		return err
	})
	if err != nil {
		logger.WithFields(logger.Fields{
			"component":    "Reconciler",
			"op":           "Rebuild",
			"portfolio_id": portfolioID,
			"asset_id":     assetID,
		}).WithError(err).Error("Failed to rebuild position")
		return model.PositionSnapshot{}, err
	}

	r.publish(portfolioID, assetID, snapshot)
	return snapshot, nil
}

func (r *Reconciler) withPair(ctx context.Context, portfolioID int64, assetID string, fn func(Store) error) error {
	unlock := r.locks.Lock(portfolioID, assetID)
	defer unlock()

	return r.store.InPairTx(ctx, portfolioID, assetID, fn)
}

func (r *Reconciler) publish(portfolioID int64, assetID string, snapshot model.PositionSnapshot) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(portfolioID, assetID, snapshot)
}

func recompute(ctx context.Context, store Store, portfolioID int64, assetID string, txs []model.Transaction) (model.PositionSnapshot, error) {
	snapshot, err := Aggregate(txs)
	if err != nil {
		return model.PositionSnapshot{}, err
	}
	if err := store.PersistSnapshot(ctx, portfolioID, assetID, snapshot); err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("persist snapshot: %w", err)
	}
	return snapshot, nil
}

// parseBatch maps every raw record before anything is written. A later record
// with the same external id replaces an earlier one.
func parseBatch(raws []externalmodel.RawTransaction, portfolioID int64, assetID string) ([]model.Transaction, error) {
	candidates := make([]model.Transaction, 0, len(raws))
	seen := make(map[string]int, len(raws))

	for i, raw := range raws {
		if raw.ID.String() == "" {
			return nil, &MissingExternalIDError{Index: i}
		}

		tx, err := mapper.MapRawTransaction(raw, portfolioID, assetID)
		if err != nil {
			parseErr := &ParseError{Index: i, ExternalID: raw.ID.String(), Err: err}
			var fieldErr *mapper.FieldError
			if errors.As(err, &fieldErr) {
				parseErr.Field = fieldErr.Field
				parseErr.Err = fieldErr.Err
			}
			return nil, parseErr
		}

		if at, ok := seen[*tx.ExternalID]; ok {
			candidates[at] = tx
			continue
		}
		seen[*tx.ExternalID] = len(candidates)
		candidates = append(candidates, tx)
	}

	return candidates, nil
}

func validateTransaction(tx model.Transaction) error {
	if tx.PortfolioID == 0 || tx.AssetID == "" {
		return fmt.Errorf("%w: portfolio and asset are required", ErrInvalidTransaction)
	}
	if !tx.TxType.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTxType, tx.TxType)
	}
	if tx.Quantity.IsNegative() || tx.Price.IsNegative() || tx.Fees.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidTransaction)
	}
	if tx.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidTransaction)
	}
	return nil
}

func validateUpdate(update model.TransactionUpdate) error {
	if update.TxType != nil && !update.TxType.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTxType, *update.TxType)
	}
	if (update.Quantity != nil && update.Quantity.IsNegative()) ||
		(update.Price != nil && update.Price.IsNegative()) ||
		(update.Fees != nil && update.Fees.IsNegative()) {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidTransaction)
	}
	if update.Currency != nil && *update.Currency == "" {
		return fmt.Errorf("%w: currency must not be empty", ErrInvalidTransaction)
	}
	return nil
}

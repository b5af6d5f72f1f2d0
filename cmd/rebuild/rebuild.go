package rebuild

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/ledger"
	"portfoliotracker/src/repository"
)

// Rebuilder recomputes the cached snapshots of every position, or of one
// portfolio when PortfolioID is set.
type Rebuilder struct {
	Log         *logger.Entry
	DB          *gorm.DB
	PortfolioID int64
}

func (r *Rebuilder) Start(ctx context.Context) (int, error) {
	if r.Log == nil {
		r.Log = logger.WithField("cmd", "rebuild")
	}

	pairs, err := repository.NewPortfolioRepository().WithDB(r.DB).ListPairs(ctx, r.PortfolioID)
	if err != nil {
		return 0, err
	}

	reconciler := ledger.NewReconciler(repository.NewTransactionRepository().WithDB(r.DB), nil, nil)
	for _, pair := range pairs {
		snapshot, err := reconciler.Rebuild(ctx, pair.PortfolioID, pair.AssetID)
		if err != nil {
			r.Log.WithFields(logger.Fields{
				"portfolio_id": pair.PortfolioID,
				"asset_id":     pair.AssetID,
			}).WithError(err).Error("rebuild failed")
			return 0, err
		}
		r.Log.WithFields(logger.Fields{
			"portfolio_id":   pair.PortfolioID,
			"asset_id":       pair.AssetID,
			"holding_amount": snapshot.HoldingAmount.String(),
		}).Debug("snapshot rebuilt")
	}

	r.Log.WithField("pairs", len(pairs)).Info("rebuild finished")
	return len(pairs), nil
}

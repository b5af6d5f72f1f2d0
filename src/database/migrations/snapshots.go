package migrations

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfoliotracker/src/ledger"
	"portfoliotracker/src/model"
)

func lowercaseTransactionCurrency(db *gorm.DB) error {
	return db.Model(&model.Transaction{}).
		Where("currency <> LOWER(currency)").
		Update("currency", gorm.Expr("LOWER(currency)")).Error
}

type pair struct {
	PortfolioID int64
	AssetID     string
}

// backfillPositionSnapshots recomputes the position of every pair that has
// transactions, creating the portfolio_assets rows that are missing.
func backfillPositionSnapshots(db *gorm.DB) error {
	var pairs []pair
	if err := db.Model(&model.Transaction{}).
		Distinct("portfolio_id", "asset_id").
		Find(&pairs).Error; err != nil {
		return fmt.Errorf("list ledger pairs: %w", err)
	}

	for _, p := range pairs {
		var txs []model.Transaction
		if err := db.Where("portfolio_id = ? AND asset_id = ?", p.PortfolioID, p.AssetID).
			Find(&txs).Error; err != nil {
			return fmt.Errorf("load ledger %d/%s: %w", p.PortfolioID, p.AssetID, err)
		}

		snapshot, err := ledger.Aggregate(txs)
		if err != nil {
			return fmt.Errorf("aggregate %d/%s: %w", p.PortfolioID, p.AssetID, err)
		}

		row := model.PortfolioAsset{PortfolioID: p.PortfolioID, AssetID: p.AssetID, Snapshot: snapshot}
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "portfolio_id"}, {Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"holding_amount", "total_cost", "avg_buy_price",
				"sold_amount", "total_revenue", "avg_sell_price", "updated_at",
			}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("persist snapshot %d/%s: %w", p.PortfolioID, p.AssetID, err)
		}
	}

	logrus.WithField("pairs", len(pairs)).Info("[migrations] position snapshots backfilled")
	return nil
}

package rebuild

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliotracker/src/database"
	"portfoliotracker/src/model"
	"portfoliotracker/src/repository"
)

func TestRebuilder_RestoresSnapshots(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DatabaseURLMain: ":memory:", GormLogLevel: 1})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	require.NoError(t, repository.NewPortfolioRepository().WithDB(db).Create(ctx, &model.Portfolio{ID: 5, OwnerID: 1, Name: "main"}))
	require.NoError(t, repository.NewAssetRepository().WithDB(db).Create(ctx, &model.Asset{
		ID: "CRYPTO_bitcoin", AssetType: model.AssetTypeCrypto, Source: model.AssetSourceCoinGecko, Symbol: "BTC", Name: "Bitcoin",
	}))

	txRepo := repository.NewTransactionRepository().WithDB(db)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = txRepo.InsertBatch(ctx, []model.Transaction{
		{ID: 1, PortfolioID: 5, AssetID: "CRYPTO_bitcoin", TxType: model.TxTypeBuy, Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(10), Currency: "usd", ExecutedAt: at},
		{ID: 2, PortfolioID: 5, AssetID: "CRYPTO_bitcoin", TxType: model.TxTypeTransferOut, Quantity: decimal.NewFromInt(1), Currency: "usd", ExecutedAt: at},
	})
	require.NoError(t, err)

	// a stale cached position
	require.NoError(t, txRepo.PersistSnapshot(ctx, 5, "CRYPTO_bitcoin", model.PositionSnapshot{HoldingAmount: decimal.NewFromInt(99)}))

	rebuilder := &Rebuilder{Log: logrus.WithField("test", "rebuild"), DB: db, PortfolioID: 5}
	count, err := rebuilder.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pairs, err := repository.NewPortfolioRepository().WithDB(db).ListPairs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	snapshot := pairs[0].Snapshot
	assert.True(t, snapshot.HoldingAmount.Equal(decimal.NewFromInt(1)), snapshot.HoldingAmount.String())
	assert.True(t, snapshot.TotalCost.Equal(decimal.NewFromInt(20)))
	assert.True(t, snapshot.AvgBuyPrice.Equal(decimal.NewFromInt(20)))

	count, err = (&Rebuilder{DB: db, PortfolioID: 6}).Start(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

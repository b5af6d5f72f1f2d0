package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/model"
	"portfoliotracker/src/repository"
)

type coinDataFetcher interface {
	GetCoinData(ctx context.Context, coinID string) (*externalmodel.CoinDataResponse, error)
}

// Importer reconciles a CoinGecko transaction export file into a portfolio.
type Importer struct {
	Log       *logger.Entry
	DB        *gorm.DB
	Config    *Config
	IDs       ledger.IDGenerator
	Coins     coinDataFetcher
	Publisher ledger.Publisher
}

func (i *Importer) Start(ctx context.Context) error {
	if i.Config == nil {
		i.Config = GetConfig()
	}
	if i.Log == nil {
		i.Log = logger.WithField("cmd", "import")
	}

	summary, err := i.Run(ctx)
	if err != nil {
		return err
	}

	i.Log.WithFields(logger.Fields{
		"inserted":       summary.Inserted,
		"updated":        summary.Updated,
		"holding_amount": summary.Snapshot.HoldingAmount.String(),
	}).Info("import finished")
	return nil
}

func (i *Importer) Run(ctx context.Context) (ledger.ReconcileSummary, error) {
	if i.Config.File == "" || i.Config.PortfolioID == 0 || strings.TrimSpace(i.Config.CoinID) == "" {
		return ledger.ReconcileSummary{}, errors.New("file, portfolio id and coin id are required")
	}
	coinID := strings.ToLower(strings.TrimSpace(i.Config.CoinID))

	raws, err := ReadExport(i.Config.File)
	if err != nil {
		return ledger.ReconcileSummary{}, err
	}

	portfolio, err := repository.NewPortfolioRepository().WithDB(i.DB).FindByID(ctx, i.Config.PortfolioID)
	if err != nil {
		return ledger.ReconcileSummary{}, err
	}
	if portfolio == nil {
		return ledger.ReconcileSummary{}, fmt.Errorf("portfolio %d not found", i.Config.PortfolioID)
	}

	asset, err := i.ensureAsset(ctx, coinID)
	if err != nil {
		return ledger.ReconcileSummary{}, err
	}

	i.Log.WithFields(logger.Fields{
		"portfolio_id": portfolio.ID,
		"asset_id":     asset.ID,
		"records":      len(raws),
	}).Info("reconciling export")

	reconciler := ledger.NewReconciler(repository.NewTransactionRepository().WithDB(i.DB), i.IDs, i.Publisher)
	return reconciler.Reconcile(ctx, portfolio.ID, asset.ID, raws)
}

func (i *Importer) ensureAsset(ctx context.Context, coinID string) (*model.Asset, error) {
	assets := repository.NewAssetRepository().WithDB(i.DB)
	id := model.AssetID(model.AssetTypeCrypto, coinID)

	asset, err := assets.FindByID(ctx, id)
	if err != nil || asset != nil {
		return asset, err
	}
	if i.Coins == nil {
		return nil, fmt.Errorf("asset %s is not catalogued", id)
	}

	coin, err := i.Coins.GetCoinData(ctx, coinID)
	if err != nil {
		return nil, err
	}
	asset = &model.Asset{
		ID:        model.AssetID(model.AssetTypeCrypto, coin.ID),
		AssetType: model.AssetTypeCrypto,
		Source:    model.AssetSourceCoinGecko,
		Symbol:    strings.ToUpper(coin.Symbol),
		Name:      coin.Name,
		Image: model.AssetImage{
			Thumb: coin.Image.Thumb,
			Small: coin.Image.Small,
			Large: coin.Image.Large,
		},
	}
	if err := assets.Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// ReadExport reads an export file. Both a bare JSON array of records and an
// object with a "transactions" array are accepted.
func ReadExport(path string) ([]externalmodel.RawTransaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	data = bytes.TrimSpace(data)

	var raws []externalmodel.RawTransaction
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode export: %w", err)
		}
		return raws, nil
	}

	var wrapped struct {
		Transactions []externalmodel.RawTransaction `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return wrapped.Transactions, nil
}

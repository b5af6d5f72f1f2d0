package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/database"
	"portfoliotracker/src/model"
)

// AssetSearchOptions filters and paginates the asset catalogue.
type AssetSearchOptions struct {
	AssetType *model.AssetType
	Limit     int
	Offset    int
}

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository() *AssetRepository {
	logger.WithField("component", "AssetRepository").
		Info("Creating new AssetRepository with MainDB")

	return &AssetRepository{
		db: database.MainDB,
	}
}

func (r *AssetRepository) WithDB(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a new asset. A duplicate id surfaces as gorm.ErrDuplicatedKey.
func (r *AssetRepository) Create(ctx context.Context, asset *model.Asset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		logger.WithFields(logger.Fields{
			"repo":     "AssetRepository",
			"op":       "Create",
			"asset_id": asset.ID,
		}).WithError(err).Error("Failed to create asset")
		return err
	}

	logger.WithFields(logger.Fields{
		"repo":     "AssetRepository",
		"op":       "Create",
		"asset_id": asset.ID,
	}).Info("Asset created successfully")
	return nil
}

// FindByID returns (nil, nil) if the asset is not found.
func (r *AssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// Search returns one page of assets and the total number of matches.
func (r *AssetRepository) Search(ctx context.Context, options AssetSearchOptions) ([]model.Asset, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Asset{})
	if options.AssetType != nil {
		query = query.Where("asset_type = ?", *options.AssetType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.WithFields(logger.Fields{
			"repo": "AssetRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to count assets")
		return nil, 0, err
	}

	query = query.Order("created_at DESC, id")
	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var assets []model.Asset
	if err := query.Find(&assets).Error; err != nil {
		logger.WithFields(logger.Fields{
			"repo": "AssetRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search assets")
		return nil, 0, err
	}

	return assets, total, nil
}

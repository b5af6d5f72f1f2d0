package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/database"
	"portfoliotracker/src/model"
)

type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository() *PortfolioRepository {
	logger.WithField("component", "PortfolioRepository").
		Info("Creating new PortfolioRepository with MainDB")

	return &PortfolioRepository{
		db: database.MainDB,
	}
}

func (r *PortfolioRepository) WithDB(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func (r *PortfolioRepository) Create(ctx context.Context, portfolio *model.Portfolio) error {
	if err := r.db.WithContext(ctx).Create(portfolio).Error; err != nil {
		logger.WithFields(logger.Fields{
			"repo":     "PortfolioRepository",
			"op":       "Create",
			"owner_id": portfolio.OwnerID,
		}).WithError(err).Error("Failed to create portfolio")
		return err
	}

	logger.WithFields(logger.Fields{
		"repo":         "PortfolioRepository",
		"op":           "Create",
		"portfolio_id": portfolio.ID,
	}).Info("Portfolio created successfully")
	return nil
}

// FindByID returns the portfolio with its positions and their assets.
// Returns (nil, nil) if the portfolio is not found.
func (r *PortfolioRepository) FindByID(ctx context.Context, id int64) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	err := r.db.WithContext(ctx).
		Preload("Assets", func(db *gorm.DB) *gorm.DB {
			return db.Order("asset_id")
		}).
		Preload("Assets.Asset").
		First(&portfolio, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(logger.Fields{
			"repo": "PortfolioRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch portfolio by ID")
		return nil, err
	}

	return &portfolio, nil
}

// ListByOwner returns the portfolios of a user without their positions.
func (r *PortfolioRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Portfolio, error) {
	var portfolios []model.Portfolio
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&portfolios).Error
	if err != nil {
		logger.WithFields(logger.Fields{
			"repo":     "PortfolioRepository",
			"op":       "ListByOwner",
			"owner_id": ownerID,
		}).WithError(err).Error("Failed to list portfolios")
		return nil, err
	}

	return portfolios, nil
}

// ListPairs returns every (portfolio, asset) pair that has a position row.
func (r *PortfolioRepository) ListPairs(ctx context.Context, portfolioID int64) ([]model.PortfolioAsset, error) {
	var rows []model.PortfolioAsset
	query := r.db.WithContext(ctx).Order("portfolio_id, asset_id")
	if portfolioID != 0 {
		query = query.Where("portfolio_id = ?", portfolioID)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

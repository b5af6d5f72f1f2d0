package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is the derived state of one (portfolio, asset) pair. It is
// always recomputed from the full transaction set, never patched.
type PositionSnapshot struct {
	HoldingAmount decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"holding_amount"`
	TotalCost     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"total_cost"`
	AvgBuyPrice   decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"avg_buy_price"`
	SoldAmount    decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"sold_amount"`
	TotalRevenue  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"total_revenue"`
	AvgSellPrice  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"avg_sell_price"`
}

// Equal compares snapshots by decimal value.
func (s PositionSnapshot) Equal(o PositionSnapshot) bool {
	return s.HoldingAmount.Equal(o.HoldingAmount) &&
		s.TotalCost.Equal(o.TotalCost) &&
		s.AvgBuyPrice.Equal(o.AvgBuyPrice) &&
		s.SoldAmount.Equal(o.SoldAmount) &&
		s.TotalRevenue.Equal(o.TotalRevenue) &&
		s.AvgSellPrice.Equal(o.AvgSellPrice)
}

// PortfolioAsset links an asset to a portfolio and caches its position.
type PortfolioAsset struct {
	PortfolioID int64            `gorm:"primaryKey;autoIncrement:false" json:"portfolio_id,string"`
	AssetID     string           `gorm:"primaryKey;size:150" json:"asset_id"`
	Snapshot    PositionSnapshot `gorm:"embedded" json:"snapshot"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Asset *Asset `gorm:"foreignKey:AssetID;references:ID" json:"asset,omitempty"`
}

func (PortfolioAsset) TableName() string {
	return "portfolio_assets"
}

package model

import "time"

type Portfolio struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OwnerID   int64     `gorm:"not null;index" json:"owner_id,string"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assets []PortfolioAsset `gorm:"foreignKey:PortfolioID" json:"assets,omitempty"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}

package model

import (
	"fmt"
	"strings"
	"time"
)

type AssetType string

const (
	AssetTypeCrypto AssetType = "CRYPTO"
	AssetTypeStock  AssetType = "STOCK"
)

func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(strings.ToUpper(strings.TrimSpace(s))) {
	case AssetTypeCrypto:
		return AssetTypeCrypto, nil
	case AssetTypeStock:
		return AssetTypeStock, nil
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// AssetID builds the internal asset id, e.g. CRYPTO_bitcoin.
func AssetID(assetType AssetType, externalID string) string {
	return fmt.Sprintf("%s_%s", assetType, strings.ToLower(externalID))
}

type AssetImage struct {
	Thumb *string `json:"thumb,omitempty"`
	Small *string `json:"small,omitempty"`
	Large *string `json:"large,omitempty"`
}

type Asset struct {
	ID        string     `gorm:"primaryKey;size:150" json:"id"`
	AssetType AssetType  `gorm:"size:20;not null;index" json:"asset_type"`
	Source    string     `gorm:"size:50;not null" json:"source"`
	Symbol    string     `gorm:"size:50;not null" json:"symbol"`
	Name      string     `gorm:"size:200;not null" json:"name"`
	Image     AssetImage `gorm:"serializer:json;type:text" json:"image"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Asset) TableName() string {
	return "assets"
}

const AssetSourceCoinGecko = "coingecko"

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/model"
	"portfoliotracker/src/repository"
	"portfoliotracker/src/response"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type createAssetPayload struct {
	AssetType  string `json:"asset_type"`
	ExternalID string `json:"external_id"`
}

type AssetHandlers struct {
	Assets assetStore
	Coins  coinDataFetcher
}

func (h *AssetHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		options := repository.AssetSearchOptions{Limit: defaultPageLimit}
		if v := query.Get("asset_type"); v != "" {
			assetType, err := model.ParseAssetType(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "Invalid asset_type")
				return
			}
			options.AssetType = &assetType
		}

		page := 1
		if v := query.Get("page"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil || p < 1 {
				response.Error(w, http.StatusBadRequest, "Invalid page")
				return
			}
			page = p
		}
		if v := query.Get("limit"); v != "" {
			l, err := strconv.Atoi(v)
			if err != nil || l < 1 {
				response.Error(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			if l > maxPageLimit {
				l = maxPageLimit
			}
			options.Limit = l
		}
		options.Offset = (page - 1) * options.Limit

		assets, total, err := h.Assets.Search(r.Context(), options)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "ListAssets"})
			return
		}
		if assets == nil {
			assets = []model.Asset{}
		}

		response.OK(w, response.Paging{
			Items: assets,
			Page:  page,
			Limit: options.Limit,
			Total: total,
		})
	}
}

func (h *AssetHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAssetPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		assetType, err := model.ParseAssetType(payload.AssetType)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid asset_type")
			return
		}
		if assetType != model.AssetTypeCrypto {
			response.Error(w, http.StatusBadRequest, "Only crypto assets can be created")
			return
		}
		externalID := strings.ToLower(strings.TrimSpace(payload.ExternalID))
		if externalID == "" {
			response.Error(w, http.StatusBadRequest, "external_id is required")
			return
		}

		existing, err := h.Assets.FindByID(r.Context(), model.AssetID(assetType, externalID))
		if err != nil {
			writeError(w, err, logger.Fields{"op": "CreateAsset", "external_id": externalID})
			return
		}
		if existing != nil {
			response.Error(w, http.StatusBadRequest, "Asset already exists")
			return
		}

		asset, err := h.createFromCoinGecko(r, externalID)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				response.Error(w, http.StatusBadRequest, "Asset already exists")
				return
			}
			writeError(w, err, logger.Fields{"op": "CreateAsset", "external_id": externalID})
			return
		}
		response.JSON(w, http.StatusCreated, asset)
	}
}

// ensureCrypto returns the crypto asset for coinID, creating it from
// CoinGecko coin data when it is not catalogued yet.
func (h *AssetHandlers) ensureCrypto(r *http.Request, coinID string) (*model.Asset, error) {
	id := model.AssetID(model.AssetTypeCrypto, coinID)
	asset, err := h.Assets.FindByID(r.Context(), id)
	if err != nil || asset != nil {
		return asset, err
	}

	asset, err = h.createFromCoinGecko(r, coinID)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// created by a concurrent request
		return h.Assets.FindByID(r.Context(), id)
	}
	return asset, err
}

func (h *AssetHandlers) createFromCoinGecko(r *http.Request, coinID string) (*model.Asset, error) {
	coin, err := h.Coins.GetCoinData(r.Context(), coinID)
	if err != nil {
		return nil, err
	}

	asset := assetFromCoin(coin)
	if err := h.Assets.Create(r.Context(), asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func assetFromCoin(coin *externalmodel.CoinDataResponse) *model.Asset {
	return &model.Asset{
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
}

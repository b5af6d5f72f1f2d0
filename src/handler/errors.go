package handler

import (
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/connectors"
	"portfoliotracker/src/idgen"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/mapper"
	"portfoliotracker/src/response"
)

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error, fields logger.Fields) {
	var (
		parseErr    *ledger.ParseError
		missingErr  *ledger.MissingExternalIDError
		fieldErr    *mapper.FieldError
		upstreamErr *connectors.UpstreamError
	)

	switch {
	case errors.As(err, &parseErr), errors.As(err, &missingErr), errors.As(err, &fieldErr),
		errors.Is(err, ledger.ErrUnknownTxType), errors.Is(err, ledger.ErrInvalidTransaction):
		logger.WithFields(fields).WithError(err).Warn("rejected ledger input")
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrTransactionNotFound):
		response.Error(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, connectors.ErrCoinNotFound):
		response.Error(w, http.StatusNotFound, "Coin not found")
	case errors.As(err, &upstreamErr):
		logger.WithFields(fields).WithError(err).Error("CoinGecko request failed")
		response.Error(w, http.StatusBadGateway, "Can not get coin data")
	case errors.Is(err, idgen.ErrClockMovedBackwards):
		logger.WithFields(fields).WithError(err).Error("id allocation refused, clock moved backwards")
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		logger.WithFields(fields).WithError(err).Error("request failed")
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

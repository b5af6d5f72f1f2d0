package response

import (
	"encoding/json"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
)

type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// Envelope wraps every JSON body the API returns.
type Envelope struct {
	UnixTime int64       `json:"unix_time"`
	Errors   []APIError  `json:"errors"`
	Data     interface{} `json:"data"`
}

// Paging is the data of list endpoints that paginate.
type Paging struct {
	Items interface{} `json:"items"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int64       `json:"total"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{
		UnixTime: time.Now().Unix(),
		Errors:   []APIError{},
		Data:     data,
	})
}

func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{
		UnixTime: time.Now().Unix(),
		Errors:   []APIError{{Message: message, StatusCode: status}},
	})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

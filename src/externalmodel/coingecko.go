package externalmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RawID is the record id of a CoinGecko portfolio export. Exports carry it
// either as a JSON number or a string; both decode to the same text.
type RawID string

func (id *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RawID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*id = RawID(n.String())
	return nil
}

func (id RawID) String() string {
	return string(id)
}

// RawTransaction is one record of a CoinGecko portfolio transaction export.
// Every numeric field arrives as text and is parsed by the mapper.
type RawTransaction struct {
	ID                   RawID   `json:"id"`
	TransactionType      string  `json:"transaction_type"`
	Currency             string  `json:"currency"`
	Quantity             string  `json:"quantity"`
	Price                string  `json:"price"`
	TransactionTimestamp string  `json:"transaction_timestamp"`
	Fees                 string  `json:"fees"`
	Notes                *string `json:"notes,omitempty"`
}

type CoinImage struct {
	Thumb *string `json:"thumb,omitempty"`
	Small *string `json:"small,omitempty"`
	Large *string `json:"large,omitempty"`
}

// CoinDataResponse is the subset of GET /coins/{id} the service stores.
type CoinDataResponse struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Name      string            `json:"name"`
	Platforms map[string]string `json:"platforms,omitempty"`
	Image     CoinImage         `json:"image"`
}

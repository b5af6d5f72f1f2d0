package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnknownTxType       = errors.New("unknown transaction type")
	ErrInvalidTransaction  = errors.New("invalid transaction")
)

// ParseError rejects a whole import batch because one raw record could not
// be parsed. Index is the position of the record in the submitted batch.
type ParseError struct {
	Index      int
	ExternalID string
	Field      string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d (external id %q): %v", e.Index, e.ExternalID, e.Err)
	}
	return fmt.Sprintf("record %d (external id %q): invalid %s: %v", e.Index, e.ExternalID, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingExternalIDError rejects an import batch containing a record without
// an external id, since such a record could never be matched on re-import.
type MissingExternalIDError struct {
	Index int
}

func (e *MissingExternalIDError) Error() string {
	return fmt.Sprintf("record %d has no external id", e.Index)
}

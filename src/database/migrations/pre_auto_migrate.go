package migrations

import (
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var decimalColumns = map[string][]string{
	"transactions": {"quantity", "price", "fees"},
	"portfolio_assets": {
		"holding_amount", "total_cost", "avg_buy_price",
		"sold_amount", "total_revenue", "avg_sell_price",
	},
}

// PrepareDecimalColumns converts amount columns that older schemas stored as
// floating point into numeric so AutoMigrate does not fail on the cast and no
// precision is lost afterwards. Only postgres keeps column types strict
// enough for this to matter.
func PrepareDecimalColumns(db *gorm.DB) error {
	if db == nil || db.Dialector.Name() != "postgres" {
		return nil
	}

	for table, columns := range decimalColumns {
		for _, column := range columns {
			columnType, exists, err := lookupColumnType(db, table, column)
			if err != nil {
				return fmt.Errorf("inspect %s.%s: %w", table, column, err)
			}
			if !exists || !isFloaty(columnType) {
				continue
			}

			stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE numeric USING %s::numeric", table, column, column)
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("convert %s.%s to numeric: %w", table, column, err)
			}
		}
	}

	return nil
}

func lookupColumnType(db *gorm.DB, table, column string) (dataType string, exists bool, err error) {
	row := db.Raw(
		`SELECT data_type FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
		table,
		column,
	).Row()

	if scanErr := row.Scan(&dataType); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, scanErr
	}

	return dataType, true, nil
}

func isFloaty(dataType string) bool {
	dataType = strings.ToLower(dataType)
	return dataType == "double precision" || dataType == "real" || strings.HasPrefix(dataType, "float")
}

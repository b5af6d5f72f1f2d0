package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"portfoliotracker/src/model"
)

// Aggregate folds the full transaction set of a pair into its position. The
// result does not depend on the order of txs.
//
// Both average prices divide by the net holding left after the fold. When the
// holding is exactly zero they are reported as zero.
func Aggregate(txs []model.Transaction) (model.PositionSnapshot, error) {
	holding := decimal.Zero
	totalCost := decimal.Zero
	sold := decimal.Zero
	revenue := decimal.Zero

	for _, tx := range txs {
		switch tx.TxType {
		case model.TxTypeBuy:
			holding = holding.Add(tx.Quantity)
			totalCost = totalCost.Add(tx.Price.Mul(tx.Quantity))
		case model.TxTypeSell:
			holding = holding.Sub(tx.Quantity)
			sold = sold.Add(tx.Quantity)
			revenue = revenue.Add(tx.Price.Mul(tx.Quantity))
		case model.TxTypeTransferIn:
			holding = holding.Add(tx.Quantity)
		case model.TxTypeTransferOut:
			holding = holding.Sub(tx.Quantity)
		default:
			return model.PositionSnapshot{}, fmt.Errorf("%w %q on transaction %d", ErrUnknownTxType, tx.TxType, tx.ID)
		}
	}

	snapshot := model.PositionSnapshot{
		HoldingAmount: holding,
		TotalCost:     totalCost,
		AvgBuyPrice:   decimal.Zero,
		SoldAmount:    sold,
		TotalRevenue:  revenue,
		AvgSellPrice:  decimal.Zero,
	}
	if !holding.IsZero() {
		snapshot.AvgBuyPrice = totalCost.Div(holding)
		snapshot.AvgSellPrice = revenue.Div(holding)
	}
	return snapshot, nil
}

// Package etl implements the synchronization pipeline: transform,
// warehouse load, and summary aggregation, sequenced by the Pipeline.
package etl

import (
	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
)

// Transformer normalizes transactional rows into warehouse facts. It is a
// pure function over its input: no I/O, output preserves input order.
type Transformer struct{}

// NewTransformer creates a new transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform converts source transactions into warehouse facts. Rows that
// fail validation are skipped and returned as validation errors for the
// caller to count and log; they never abort a run.
func (t *Transformer) Transform(txns []model.Transaction) ([]model.WarehouseFact, []*common.ValidationError) {
	facts := make([]model.WarehouseFact, 0, len(txns))
	var invalid []*common.ValidationError

	for _, txn := range txns {
		if err := validate(txn); err != nil {
			invalid = append(invalid, err)
			continue
		}

		facts = append(facts, model.WarehouseFact{
			TransactionID: txn.ID,
			DateKey:       model.NewDateKey(txn.Date),
			UserID:        txn.UserID,
			AccountID:     txn.AccountID,
			CategoryID:    txn.CategoryID, // 0 stays 0: stored as NULL
			Amount:        txn.Amount,
			Type:          txn.Type,
			Description:   txn.Description,
			MerchantName:  txn.MerchantName,
			PaymentMethod: txn.PaymentMethod,
		})
	}

	return facts, invalid
}

func validate(txn model.Transaction) *common.ValidationError {
	if txn.Date.IsZero() {
		return &common.ValidationError{
			TransactionID: txn.ID,
			Field:         "transaction_date",
			Reason:        "missing date",
		}
	}
	if !txn.Type.Valid() {
		return &common.ValidationError{
			TransactionID: txn.ID,
			Field:         "transaction_type",
			Reason:        "unknown type " + string(txn.Type),
		}
	}
	if !txn.Amount.IsPositive() {
		return &common.ValidationError{
			TransactionID: txn.ID,
			Field:         "amount",
			Reason:        "must be positive, got " + txn.Amount.String(),
		}
	}
	return nil
}

package backup

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/subramanyaSgb/finvault/internal/models"
	"github.com/subramanyaSgb/finvault/internal/vault"
)

var csvHeader = []string{"date", "type", "category", "subcategory", "amount", "account", "description"}

// ExportTransactionsCSV flattens the profile's transactions into a
// spreadsheet-friendly table. The output is export-only and cannot be
// imported back.
func (e *Exporter) ExportTransactionsCSV(ctx context.Context, profileID string) ([]byte, error) {
	txs, err := vault.List[models.Transaction](ctx, e.store, profileID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, item := range txs {
		tx := item.Value
		row := []string{
			tx.Date.Format("2006-01-02"),
			string(tx.Type),
			tx.Category,
			tx.Subcategory,
			tx.Amount.String(),
			tx.AccountID,
			tx.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	e.log.Info().Str("profile_id", profileID).Int("rows", len(txs)).Msg("csv export complete")
	return buf.Bytes(), nil
}

package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
)

// SummaryRow is the warehouse shape of an archived commission month.
type SummaryRow struct {
	SummaryID     string    `bigquery:"summary_id"`
	AgentID       string    `bigquery:"agent_id"`
	TenantID      string    `bigquery:"tenant_id"`
	Year          int       `bigquery:"year"`
	Month         int       `bigquery:"month"`
	TotalOrders   int64     `bigquery:"total_orders"`
	TotalRevenue  *big.Rat  `bigquery:"total_revenue"`
	TotalEarned   *big.Rat  `bigquery:"total_earned"`
	TotalPaid     *big.Rat  `bigquery:"total_paid"`
	TotalPending  *big.Rat  `bigquery:"total_pending"`
	TotalExpired  *big.Rat  `bigquery:"total_expired"`
	PaymentStatus string    `bigquery:"payment_status"`
	RecordCount   int64     `bigquery:"record_count"`
	ArchivedAt    time.Time `bigquery:"archived_at"`
}

// NewSummaryRow converts a persisted summary into its warehouse row.
func NewSummaryRow(s models.CommissionMonthlySummary) SummaryRow {
	return SummaryRow{
		SummaryID:     s.ID.String(),
		AgentID:       s.AgentID.String(),
		TenantID:      s.TenantID.String(),
		Year:          s.Year,
		Month:         s.Month,
		TotalOrders:   s.TotalOrders,
		TotalRevenue:  s.TotalRevenue.Rat(),
		TotalEarned:   s.TotalEarned.Rat(),
		TotalPaid:     s.TotalPaid.Rat(),
		TotalPending:  s.TotalPending.Rat(),
		TotalExpired:  s.TotalExpired.Rat(),
		PaymentStatus: string(s.PaymentStatus),
		RecordCount:   s.RecordCount,
		ArchivedAt:    s.ArchivedAt.UTC(),
	}
}

// insertID keys a row for streaming dedupe. Re-archiving a month rewrites the
// summary with a new archived_at, so that is part of the key.
func insertID(row SummaryRow) string {
	return row.SummaryID + ":" + row.ArchivedAt.Format(time.RFC3339Nano)
}

// summarySavers wraps each summary with its dedupe key.
func summarySavers(summaries []models.CommissionMonthlySummary) ([]*bigquery.StructSaver, error) {
	schema, err := summarySchema()
	if err != nil {
		return nil, err
	}
	savers := make([]*bigquery.StructSaver, 0, len(summaries))
	for _, s := range summaries {
		row := NewSummaryRow(s)
		savers = append(savers, &bigquery.StructSaver{
			Schema:   schema,
			InsertID: insertID(row),
			Struct:   row,
		})
	}
	return savers, nil
}

// ExportSummaries streams archived summaries into the summary table.
func (c *Client) ExportSummaries(ctx context.Context, summaries []models.CommissionMonthlySummary) error {
	if len(summaries) == 0 {
		return nil
	}
	if c == nil || c.summaries == nil {
		return errClientNotInitialized
	}
	savers, err := summarySavers(summaries)
	if err != nil {
		return err
	}
	return c.summaries.Inserter().Put(ctx, savers)
}

package commissions

import (
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/payloads"
)

func payloadFor(record *models.CommissionRecord, reason string) payloads.CommissionEvent {
	event := payloads.CommissionEvent{
		RecordID:    record.ID,
		AgentID:     record.AgentID,
		Period:      record.Period,
		PeriodStart: record.PeriodStart,
		PeriodEnd:   record.PeriodEnd,
		Amount:      record.Amount,
		Status:      record.Status,
		Reason:      reason,
	}
	if record.PaymentReference != nil {
		event.PaymentReference = *record.PaymentReference
	}
	return event
}

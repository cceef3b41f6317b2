package orders

import (
	"time"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/payloads"
)

func payloadCreated(order *models.Order) payloads.OrderCreatedEvent {
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OwnerID:       order.OwnerID,
		TenantID:      order.TenantID,
		Type:          order.Type,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
	}
}

func payloadStatusChanged(order *models.Order, change statusChange) payloads.OrderStatusChangedEvent {
	return payloads.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OwnerID:     order.OwnerID,
		From:        change.from,
		To:          change.to,
		Reason:      change.reason,
	}
}

func payloadRefunded(order *models.Order, refund *models.WalletTransaction, reason string) payloads.OrderRefundedEvent {
	return payloads.OrderRefundedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OwnerID:       order.OwnerID,
		Amount:        refund.Amount,
		TransactionID: refund.ID,
		Reason:        reason,
	}
}

func payloadReported(order *models.Order) payloads.OrderReportedEvent {
	reportedAt := time.Time{}
	if order.ReportedAt != nil {
		reportedAt = *order.ReportedAt
	}
	return payloads.OrderReportedEvent{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		OwnerID:         order.OwnerID,
		ReceptionStatus: order.ReceptionStatus,
		ReportedAt:      reportedAt,
	}
}

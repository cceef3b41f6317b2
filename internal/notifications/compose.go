package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/payloads"
)

// Compose turns a decoded domain event payload into the in-app notifications
// it should produce. Events nobody needs to hear about yield nothing.
func Compose(eventType enums.OutboxEventType, payload any) []models.Notification {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return composeOrderCreated(p)
	case *payloads.OrderStatusChangedEvent:
		return composeOrderStatus(p)
	case *payloads.OrderRefundedEvent:
		return one(p.OwnerID, enums.NotificationTypeWallet,
			"Refund issued",
			fmt.Sprintf("%s was refunded to your wallet for order %s.", money(p.Amount), p.OrderNumber),
			orderLink(p.OrderID))
	case *payloads.OrderReportedEvent:
		return one(p.OwnerID, enums.NotificationTypeOrderUpdate,
			"Report received",
			fmt.Sprintf("We are checking delivery for order %s.", p.OrderNumber),
			orderLink(p.OrderID))
	case *payloads.WalletEntryEvent:
		if eventType != enums.EventWalletCredited {
			return nil
		}
		return composeCredit(p)
	case *payloads.TopUpReviewedEvent:
		return composeTopUpReview(p)
	case *payloads.CommissionEvent:
		return composeCommission(eventType, p)
	default:
		return nil
	}
}

func composeOrderCreated(p *payloads.OrderCreatedEvent) []models.Notification {
	if p.Status == enums.OrderStatusDraft {
		return one(p.OwnerID, enums.NotificationTypeOrderUpdate,
			"Order saved as draft",
			fmt.Sprintf("Order %s for %s is waiting for wallet funds and will be placed after your next top-up.",
				p.OrderNumber, money(p.Total)),
			orderLink(p.OrderID))
	}
	return nil
}

func composeOrderStatus(p *payloads.OrderStatusChangedEvent) []models.Notification {
	var title, message string
	switch p.To {
	case enums.OrderStatusPending:
		if p.From != enums.OrderStatusDraft {
			return nil
		}
		title = "Draft order placed"
		message = fmt.Sprintf("Order %s has been paid from your wallet and is now pending.", p.OrderNumber)
	case enums.OrderStatusCompleted:
		title = "Order completed"
		message = fmt.Sprintf("Every bundle in order %s was delivered.", p.OrderNumber)
	case enums.OrderStatusPartiallyCompleted:
		title = "Order partially completed"
		message = fmt.Sprintf("Some bundles in order %s could not be delivered.", p.OrderNumber)
	case enums.OrderStatusFailed:
		title = "Order failed"
		message = fmt.Sprintf("Order %s could not be delivered.", p.OrderNumber)
	case enums.OrderStatusCancelled:
		title = "Order cancelled"
		message = fmt.Sprintf("Order %s was cancelled.", p.OrderNumber)
	default:
		return nil
	}
	if reason := strings.TrimSpace(p.Reason); reason != "" && p.To != enums.OrderStatusCompleted {
		message += " Reason: " + reason
	}
	return one(p.OwnerID, enums.NotificationTypeOrderUpdate, title, message, orderLink(p.OrderID))
}

func composeCredit(p *payloads.WalletEntryEvent) []models.Notification {
	var title string
	switch p.Type {
	case enums.WalletTxTypeTopUp:
		title = "Wallet topped up"
	case enums.WalletTxTypeAdjustment:
		title = "Wallet adjusted"
	case enums.WalletTxTypeCommissionPayout:
		title = "Commission paid to wallet"
	default:
		return nil
	}
	return one(p.OwnerID, enums.NotificationTypeWallet, title,
		fmt.Sprintf("%s was added. New balance: %s.", money(p.Amount), money(p.BalanceAfter)),
		"/wallet")
}

func composeTopUpReview(p *payloads.TopUpReviewedEvent) []models.Notification {
	if p.Status != enums.WalletTxStatusRejected {
		return nil
	}
	return one(p.OwnerID, enums.NotificationTypeWallet,
		"Top-up rejected",
		fmt.Sprintf("Your top-up request for %s was rejected.", money(p.Amount)),
		"/wallet")
}

func composeCommission(eventType enums.OutboxEventType, p *payloads.CommissionEvent) []models.Notification {
	month := p.PeriodStart.Format("January 2006")
	var title, message string
	switch eventType {
	case enums.EventCommissionAccrued:
		if p.Period != enums.CommissionPeriodMonthly {
			return nil
		}
		title = "Commission finalized"
		message = fmt.Sprintf("Your commission for %s is %s and awaits payment.", month, money(p.Amount))
	case enums.EventCommissionPaid:
		title = "Commission paid"
		message = fmt.Sprintf("Your commission of %s for %s was paid.", money(p.Amount), month)
		if p.PaymentReference != "" {
			message += " Reference: " + p.PaymentReference
		}
	case enums.EventCommissionRejected:
		title = "Commission rejected"
		message = fmt.Sprintf("Your commission for %s was rejected.", month)
		if p.Reason != "" {
			message += " Reason: " + p.Reason
		}
	case enums.EventCommissionExpired:
		title = "Commission expired"
		message = fmt.Sprintf("Your unpaid commission of %s for %s has expired.", money(p.Amount), month)
	default:
		return nil
	}
	return one(p.AgentID, enums.NotificationTypeCommission, title, message, "/commissions")
}

func one(userID uuid.UUID, kind enums.NotificationType, title, message, link string) []models.Notification {
	if userID == uuid.Nil {
		return nil
	}
	n := models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if link != "" {
		n.Link = &link
	}
	return []models.Notification{n}
}

func orderLink(orderID uuid.UUID) string {
	return "/orders/" + orderID.String()
}

func money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

package orders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
)

var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusDraft: {
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusPartiallyCompleted,
		enums.OrderStatusCompleted,
		enums.OrderStatusFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing,
		enums.OrderStatusPartiallyCompleted,
		enums.OrderStatusCompleted,
		enums.OrderStatusFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusPartiallyCompleted,
		enums.OrderStatusCompleted,
		enums.OrderStatusFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPartiallyCompleted: {
		enums.OrderStatusCompleted,
		enums.OrderStatusFailed,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the order to the target status and returns the column
// updates to persist. Every status write goes through here.
func Transition(order *models.Order, to enums.OrderStatus, now time.Time) (map[string]any, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if !CanTransition(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, to)).
			WithDetails(map[string]any{"from": order.Status, "to": to})
	}

	now = now.UTC()
	updates := map[string]any{"status": to}
	switch to {
	case enums.OrderStatusProcessing:
		if order.ProcessingStartedAt == nil {
			order.ProcessingStartedAt = &now
			updates["processing_started_at"] = now
		}
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
		updates["completed_at"] = now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
		updates["cancelled_at"] = now
	}
	order.Status = to
	return updates, nil
}

// aggregateItems derives the order status implied by its items. The second
// return is false when the mix of item statuses implies no change.
func aggregateItems(items []models.OrderItem) (enums.OrderStatus, bool) {
	if len(items) == 0 {
		return "", false
	}
	seen := map[enums.ItemStatus]int{}
	for _, item := range items {
		seen[item.ProcessingStatus]++
	}

	if len(seen) == 1 {
		switch items[0].ProcessingStatus {
		case enums.ItemStatusCompleted:
			return enums.OrderStatusCompleted, true
		case enums.ItemStatusFailed:
			return enums.OrderStatusFailed, true
		case enums.ItemStatusCancelled:
			return enums.OrderStatusCancelled, true
		case enums.ItemStatusProcessing:
			return enums.OrderStatusProcessing, true
		default:
			return "", false
		}
	}
	if len(seen) == 2 && seen[enums.ItemStatusCompleted] > 0 && seen[enums.ItemStatusFailed] > 0 {
		return enums.OrderStatusPartiallyCompleted, true
	}
	if seen[enums.ItemStatusProcessing] > 0 {
		return enums.OrderStatusProcessing, true
	}
	return "", false
}

var itemTransitions = map[enums.ItemStatus][]enums.ItemStatus{
	enums.ItemStatusPending: {
		enums.ItemStatusProcessing,
		enums.ItemStatusCompleted,
		enums.ItemStatusFailed,
		enums.ItemStatusCancelled,
	},
	enums.ItemStatusProcessing: {
		enums.ItemStatusCompleted,
		enums.ItemStatusFailed,
		enums.ItemStatusCancelled,
	},
}

func canTransitionItem(from, to enums.ItemStatus) bool {
	for _, allowed := range itemTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

package commissions

import (
	"fmt"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
)

var statusTransitions = map[enums.CommissionStatus][]enums.CommissionStatus{
	enums.CommissionStatusPending: {
		enums.CommissionStatusPaid,
		enums.CommissionStatusRejected,
		enums.CommissionStatusExpired,
		enums.CommissionStatusCancelled,
	},
	enums.CommissionStatusCancelled: {
		enums.CommissionStatusPending,
	},
}

// CanTransition reports whether a commission record may change status.
func CanTransition(from, to enums.CommissionStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change to the record in memory.
// Callers persist the returned status column along with their own stamps.
func Transition(record *models.CommissionRecord, to enums.CommissionStatus) (map[string]any, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown commission status %q", to))
	}
	if !CanTransition(record.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("commission cannot move from %s to %s", record.Status, to)).
			WithDetails(map[string]any{"from": record.Status, "to": to})
	}
	record.Status = to
	return map[string]any{"status": to}, nil
}

package bookings

import (
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

// allowedTransitions is the booking lifecycle. Terminal states have no
// outgoing edges. FAILED keeps an edge back to SEARCHING for recovery
// re-dispatch and one to CONFIRMED for manual confirmation.
var allowedTransitions = map[models.BookingState][]models.BookingState{
	models.StateSearching: {
		models.StateConfirmed,
		models.StateCancelled,
		models.StateFailed,
		models.StateManualEscalation,
	},
	models.StateConfirmed: {
		models.StateInProgress,
		models.StateCancelled,
		models.StateFailed,
	},
	models.StateInProgress: {
		models.StateCompleted,
		models.StateFailed,
	},
	models.StateFailed: {
		models.StateSearching,
		models.StateConfirmed,
		models.StateManualEscalation,
	},
	models.StateManualEscalation: {
		models.StateConfirmed,
		models.StateCancelled,
		models.StateFailed,
	},
	models.StateCompleted: {},
	models.StateCancelled: {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.BookingState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GuardTransition returns a typed error when the edge is illegal.
func GuardTransition(from, to models.BookingState) error {
	if !CanTransition(from, to) {
		return common.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}

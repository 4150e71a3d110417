package bookings

import (
	"errors"
	"testing"

	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

func TestCanTransitionLifecycle(t *testing.T) {
	allowed := []struct{ from, to models.BookingState }{
		{models.StateSearching, models.StateConfirmed},
		{models.StateSearching, models.StateCancelled},
		{models.StateSearching, models.StateFailed},
		{models.StateSearching, models.StateManualEscalation},
		{models.StateConfirmed, models.StateInProgress},
		{models.StateConfirmed, models.StateCancelled},
		{models.StateConfirmed, models.StateFailed},
		{models.StateInProgress, models.StateCompleted},
		{models.StateInProgress, models.StateFailed},
		{models.StateFailed, models.StateSearching},
		{models.StateFailed, models.StateConfirmed},
		{models.StateFailed, models.StateManualEscalation},
		{models.StateManualEscalation, models.StateConfirmed},
		{models.StateManualEscalation, models.StateCancelled},
		{models.StateManualEscalation, models.StateFailed},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to models.BookingState }{
		{models.StateSearching, models.StateCompleted},
		{models.StateSearching, models.StateInProgress},
		{models.StateConfirmed, models.StateCompleted},
		{models.StateInProgress, models.StateCancelled},
		{models.StateCompleted, models.StateFailed},
		{models.StateCancelled, models.StateSearching},
		{models.StateCompleted, models.StateCompleted},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be rejected", tt.from, tt.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []models.BookingState{
		models.StateSearching, models.StateConfirmed, models.StateInProgress,
		models.StateCompleted, models.StateFailed, models.StateCancelled,
		models.StateManualEscalation,
	}

	for _, terminal := range []models.BookingState{models.StateCompleted, models.StateCancelled} {
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("terminal %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestGuardTransitionError(t *testing.T) {
	err := GuardTransition(models.StateCompleted, models.StateSearching)
	if err == nil {
		t.Fatal("expected guard error")
	}

	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.ErrorCode != common.CodeInvalidTransition {
		t.Errorf("error code = %s, want %s", appErr.ErrorCode, common.CodeInvalidTransition)
	}
	if !errors.Is(err, common.ErrInvalidTransition) {
		t.Error("expected ErrInvalidTransition in chain")
	}
}

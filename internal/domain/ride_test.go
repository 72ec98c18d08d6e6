package domain

import "testing"

func TestCanTransition_LegalEdges(t *testing.T) {
	legal := []struct {
		from, to RideStatus
	}{
		{RideStatusRequested, RideStatusAccepted},
		{RideStatusRequested, RideStatusCancelledByRider},
		{RideStatusRequested, RideStatusCancelledByDriver},
		{RideStatusAccepted, RideStatusDriverArrived},
		{RideStatusAccepted, RideStatusCancelledByRider},
		{RideStatusAccepted, RideStatusCancelledByDriver},
		{RideStatusDriverArrived, RideStatusInProgress},
		{RideStatusDriverArrived, RideStatusCancelledByRider},
		{RideStatusDriverArrived, RideStatusCancelledByDriver},
		{RideStatusInProgress, RideStatusCompleted},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsIllegalEdges(t *testing.T) {
	illegal := []struct {
		from, to RideStatus
	}{
		// No skipping steps.
		{RideStatusRequested, RideStatusDriverArrived},
		{RideStatusRequested, RideStatusInProgress},
		{RideStatusRequested, RideStatusCompleted},
		{RideStatusAccepted, RideStatusInProgress},
		{RideStatusAccepted, RideStatusCompleted},
		// An in-progress ride cannot be cancelled, only completed.
		{RideStatusInProgress, RideStatusCancelledByRider},
		{RideStatusInProgress, RideStatusCancelledByDriver},
		// No going backwards.
		{RideStatusAccepted, RideStatusRequested},
		{RideStatusInProgress, RideStatusDriverArrived},
		// Repeating the current status is not a transition.
		{RideStatusAccepted, RideStatusAccepted},
		{RideStatusInProgress, RideStatusInProgress},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoSuccessors(t *testing.T) {
	terminals := []RideStatus{RideStatusCompleted, RideStatusCancelledByRider, RideStatusCancelledByDriver}
	all := []RideStatus{
		RideStatusRequested, RideStatusAccepted, RideStatusDriverArrived,
		RideStatusInProgress, RideStatusCompleted,
		RideStatusCancelledByRider, RideStatusCancelledByDriver,
	}
	for _, from := range terminals {
		if !from.IsTerminal() {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestIsCancelled(t *testing.T) {
	if !RideStatusCancelledByRider.IsCancelled() || !RideStatusCancelledByDriver.IsCancelled() {
		t.Error("cancelled exits must report IsCancelled")
	}
	if RideStatusCompleted.IsCancelled() {
		t.Error("completed is terminal but not cancelled")
	}
}

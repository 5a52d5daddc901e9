package models

import "testing"

func TestBookingStatus_TransitionTable(t *testing.T) {
	allowed := []struct{ from, to BookingStatus }{
		{BookingStatusPending, BookingStatusApproved},
		{BookingStatusPending, BookingStatusRejected},
		{BookingStatusPending, BookingStatusCancelled},
		{BookingStatusApproved, BookingStatusInProgress},
		{BookingStatusApproved, BookingStatusCancelled},
		{BookingStatusInProgress, BookingStatusCompleted},
		{BookingStatusInProgress, BookingStatusCancelled},
	}
	for _, c := range allowed {
		if !c.from.CanTransitionTo(c.to) {
			t.Errorf("expected %s -> %s allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to BookingStatus }{
		{BookingStatusPending, BookingStatusCompleted},
		{BookingStatusPending, BookingStatusInProgress},
		{BookingStatusApproved, BookingStatusCompleted},
		{BookingStatusCompleted, BookingStatusCancelled},
		{BookingStatusCancelled, BookingStatusPending},
		{BookingStatusRejected, BookingStatusApproved},
	}
	for _, c := range denied {
		if c.from.CanTransitionTo(c.to) {
			t.Errorf("expected %s -> %s denied", c.from, c.to)
		}
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	terminal := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s terminal", s)
		}
	}
	live := []BookingStatus{BookingStatusPending, BookingStatusApproved, BookingStatusInProgress}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("expected %s not terminal", s)
		}
	}
}

func TestBookingStatus_Valid(t *testing.T) {
	if !BookingStatusPending.Valid() {
		t.Error("pending should be valid")
	}
	if BookingStatus("finished").Valid() {
		t.Error("unknown status should be invalid")
	}
	if BookingStatus("finished").IsTerminal() {
		t.Error("unknown status must not read as terminal")
	}
}

func TestStatusHistory_ScanNil(t *testing.T) {
	var h StatusHistory
	if err := h.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if h == nil || len(h) != 0 {
		t.Fatalf("expected empty history, got %v", h)
	}
}

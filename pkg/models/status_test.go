package models

import (
	"errors"
	"testing"
)

func TestParseOrderStatus(t *testing.T) {
	for _, name := range []string{"STARTED", "PACKING", "SHIPPING", "DELIVERED", "CANCELLED", "RETURNED"} {
		status, err := ParseOrderStatus(name)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", name, err)
		}
		if status.String() != name {
			t.Errorf("ParseOrderStatus(%q) = %q", name, status)
		}
	}

	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Error("expected error for unknown status")
	}
	var vErr *ValidationError
	_, err := ParseOrderStatus("")
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError, got %T", err)
	}
}

func TestCancelTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		wantErr bool
	}{
		{StatusStarted, false},
		{StatusPacking, false},
		{StatusShipping, false},
		{StatusCancelled, false}, // idempotent
		{StatusDelivered, true},
		{StatusReturned, true},
	}

	for _, tt := range tests {
		got, err := tt.from.Cancel()
		if tt.wantErr {
			var cErr *ConflictError
			if !errors.As(err, &cErr) {
				t.Errorf("Cancel from %s: expected ConflictError, got %v", tt.from, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Cancel from %s returned error: %v", tt.from, err)
		}
		if got != StatusCancelled {
			t.Errorf("Cancel from %s = %s, want CANCELLED", tt.from, got)
		}
	}
}

func TestCancelDeliveredMessage(t *testing.T) {
	_, err := StatusDelivered.Cancel()
	if err == nil {
		t.Fatal("expected error cancelling a delivered order")
	}
	want := "Orders that have been delivered cannot be cancelled"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestPackTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		wantErr bool
	}{
		{StatusStarted, false},
		{StatusPacking, false}, // idempotent
		{StatusShipping, true},
		{StatusDelivered, true},
		{StatusCancelled, true},
		{StatusReturned, true},
	}

	for _, tt := range tests {
		got, err := tt.from.Pack()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Pack from %s: expected error", tt.from)
			}
			continue
		}
		if err != nil {
			t.Errorf("Pack from %s returned error: %v", tt.from, err)
		}
		if got != StatusPacking {
			t.Errorf("Pack from %s = %s, want PACKING", tt.from, got)
		}
	}
}

func TestShipTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		wantErr bool
	}{
		{StatusStarted, false},
		{StatusPacking, false},
		{StatusShipping, false},
		{StatusReturned, false},
		{StatusCancelled, true},
		{StatusDelivered, true},
	}

	for _, tt := range tests {
		got, err := tt.from.Ship()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Ship from %s: expected error", tt.from)
			}
			continue
		}
		if err != nil {
			t.Errorf("Ship from %s returned error: %v", tt.from, err)
		}
		if got != StatusShipping {
			t.Errorf("Ship from %s = %s, want SHIPPING", tt.from, got)
		}
	}
}

func TestDeliverTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		wantErr bool
	}{
		{StatusShipping, false},
		{StatusDelivered, false}, // idempotent
		{StatusStarted, true},
		{StatusPacking, true},
		{StatusCancelled, true},
		{StatusReturned, true},
	}

	for _, tt := range tests {
		got, err := tt.from.Deliver()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Deliver from %s: expected error", tt.from)
			}
			continue
		}
		if err != nil {
			t.Errorf("Deliver from %s returned error: %v", tt.from, err)
		}
		if got != StatusDelivered {
			t.Errorf("Deliver from %s = %s, want DELIVERED", tt.from, got)
		}
	}
}

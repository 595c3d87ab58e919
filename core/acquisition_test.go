package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/geoar-bridge/model"
)

func TestAcquisitionAuthorizedStartsUpdates(t *testing.T) {
	loc := newFakeLocation(model.AuthorizationWhenInUse)
	a := NewAcquisition(loc, UsageDescriptions{WhenInUse: "x"})

	next, err := a.Evaluate(model.AuthorizationWhenInUse)
	if err != nil || next != model.SessionAwaitingLocation {
		t.Fatalf("Evaluate(when_in_use) = %v, %v", next, err)
	}
	// Repeated evaluation does not restart running updates.
	if _, err := a.Evaluate(model.AuthorizationAlways); err != nil {
		t.Fatalf("Evaluate(always): %v", err)
	}
	if loc.starts != 1 || loc.headingStarts != 1 {
		t.Fatalf("starts = %d, heading starts = %d, want 1 and 1", loc.starts, loc.headingStarts)
	}
	if !a.Updating() {
		t.Fatalf("Updating() = false")
	}

	a.Stop()
	if loc.stops != 1 || loc.headingStops != 1 || a.Updating() {
		t.Fatalf("Stop: stops = %d, heading stops = %d, updating = %v", loc.stops, loc.headingStops, a.Updating())
	}
}

func TestAcquisitionSkipsUnavailableHeading(t *testing.T) {
	loc := newFakeLocation(model.AuthorizationAlways)
	loc.headingAvailable = false
	a := NewAcquisition(loc, UsageDescriptions{Always: "x"})

	if _, err := a.Evaluate(model.AuthorizationAlways); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if loc.headingStarts != 0 {
		t.Fatalf("heading started without hardware support")
	}
}

func TestAcquisitionDenied(t *testing.T) {
	for _, state := range []model.AuthorizationState{model.AuthorizationDenied, model.AuthorizationRestricted} {
		t.Run(state.String(), func(t *testing.T) {
			loc := newFakeLocation(model.AuthorizationWhenInUse)
			a := NewAcquisition(loc, UsageDescriptions{WhenInUse: "x"})
			if _, err := a.Evaluate(model.AuthorizationWhenInUse); err != nil {
				t.Fatalf("Evaluate(authorized): %v", err)
			}

			next, err := a.Evaluate(state)
			if next != model.SessionFailed || !errors.Is(err, ErrAccessDenied) {
				t.Fatalf("Evaluate(%v) = %v, %v", state, next, err)
			}
			if loc.stops != 1 || a.Updating() {
				t.Fatalf("updates not stopped on denial")
			}
		})
	}
}

func TestAcquisitionRequestsOncePreferringWhenInUse(t *testing.T) {
	loc := newFakeLocation(model.AuthorizationNotDetermined)
	a := NewAcquisition(loc, UsageDescriptions{WhenInUse: "x", Always: "y"})

	for i := 0; i < 3; i++ {
		next, err := a.Evaluate(model.AuthorizationNotDetermined)
		if err != nil || next != model.SessionAwaitingAuthorization {
			t.Fatalf("Evaluate(not_determined) = %v, %v", next, err)
		}
	}
	if loc.whenInUseRequests != 1 || loc.alwaysRequests != 0 {
		t.Fatalf("requests = when-in-use %d, always %d", loc.whenInUseRequests, loc.alwaysRequests)
	}

	a.Reset()
	if _, err := a.Evaluate(model.AuthorizationNotDetermined); err != nil {
		t.Fatalf("Evaluate after Reset: %v", err)
	}
	if loc.whenInUseRequests != 2 {
		t.Fatalf("Reset did not re-arm the request, got %d", loc.whenInUseRequests)
	}
}

func TestAcquisitionAlwaysOnlyDescription(t *testing.T) {
	loc := newFakeLocation(model.AuthorizationNotDetermined)
	a := NewAcquisition(loc, UsageDescriptions{Always: "y"})

	if _, err := a.Evaluate(model.AuthorizationNotDetermined); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if loc.alwaysRequests != 1 || loc.whenInUseRequests != 0 {
		t.Fatalf("requests = when-in-use %d, always %d", loc.whenInUseRequests, loc.alwaysRequests)
	}
}

func TestAcquisitionMissingConfiguration(t *testing.T) {
	loc := newFakeLocation(model.AuthorizationNotDetermined)
	a := NewAcquisition(loc, UsageDescriptions{})

	next, err := a.Evaluate(model.AuthorizationNotDetermined)
	if next != model.SessionFailed || !errors.Is(err, ErrMissingConfiguration) {
		t.Fatalf("Evaluate = %v, %v", next, err)
	}
	if requests, _, _ := loc.calls(); requests != 0 {
		t.Fatalf("authorization requested without a usage description")
	}
}

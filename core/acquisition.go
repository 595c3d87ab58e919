package core

import "github.com/signalsfoundry/geoar-bridge/model"

// UsageDescriptions are the platform strings explaining location use. At
// least one must be present before authorization can be requested.
type UsageDescriptions struct {
	WhenInUse string
	Always    string
}

// Any reports whether at least one description is configured.
func (u UsageDescriptions) Any() bool {
	return u.WhenInUse != "" || u.Always != ""
}

// Acquisition decides from the authorization state whether location
// updates may run, and drives the location collaborator accordingly.
type Acquisition struct {
	loc   LocationService
	usage UsageDescriptions

	requested bool
	updating  bool
	heading   bool
}

// NewAcquisition binds the state machine to a location collaborator.
func NewAcquisition(loc LocationService, usage UsageDescriptions) *Acquisition {
	return &Acquisition{loc: loc, usage: usage}
}

// Evaluate maps an authorization state to the session state it implies,
// issuing the matching collaborator calls. A non-nil error is always
// paired with model.SessionFailed.
func (a *Acquisition) Evaluate(state model.AuthorizationState) (model.SessionState, error) {
	switch {
	case state.Authorized():
		a.startUpdates()
		return model.SessionAwaitingLocation, nil
	case state.Denied():
		a.Stop()
		return model.SessionFailed, ErrAccessDenied
	default:
		if !a.usage.Any() {
			return model.SessionFailed, ErrMissingConfiguration
		}
		if !a.requested {
			a.requested = true
			if a.usage.WhenInUse != "" {
				a.loc.RequestWhenInUseAuthorization()
			} else {
				a.loc.RequestAlwaysAuthorization()
			}
		}
		return model.SessionAwaitingAuthorization, nil
	}
}

func (a *Acquisition) startUpdates() {
	if !a.updating {
		a.loc.StartUpdatingLocation()
		a.updating = true
	}
	if !a.heading && a.loc.HeadingAvailable() {
		a.loc.StartUpdatingHeading()
		a.heading = true
	}
}

// Stop halts location and heading updates if they are running.
func (a *Acquisition) Stop() {
	if a.updating {
		a.loc.StopUpdatingLocation()
		a.updating = false
	}
	if a.heading {
		a.loc.StopUpdatingHeading()
		a.heading = false
	}
}

// Updating reports whether location updates are running.
func (a *Acquisition) Updating() bool { return a.updating }

// Reset stops updates and forgets that authorization was requested.
func (a *Acquisition) Reset() {
	a.Stop()
	a.requested = false
}

package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/geoar-bridge/model"
)

// WorstAccuracy is the watermark value before any valid fix is seen.
const WorstAccuracy = math.MaxFloat64

// OriginResolver produces the single anchor every frame is composed onto,
// either from a caller-supplied override or from the first valid fix.
type OriginResolver struct {
	override  *model.GeographicAnchor
	anchor    *model.GeographicAnchor
	watermark float64
}

// NewOriginResolver returns a resolver. A non-nil override is used
// unconditionally and no fix is ever awaited.
func NewOriginResolver(override *model.GeographicAnchor) *OriginResolver {
	r := &OriginResolver{watermark: WorstAccuracy}
	r.SetOverride(override)
	return r
}

// SetOverride replaces the caller-supplied anchor. It takes effect on the
// next Resolve after Reset.
func (r *OriginResolver) SetOverride(override *model.GeographicAnchor) {
	if override == nil {
		r.override = nil
		return
	}
	cp := *override
	r.override = &cp
}

// HasOverride reports whether a caller-supplied anchor is configured.
func (r *OriginResolver) HasOverride() bool {
	return r.override != nil
}

// Resolve establishes the override as the anchor. It returns false when
// there is no override and the anchor has to come from a location fix.
func (r *OriginResolver) Resolve() (model.GeographicAnchor, bool) {
	if r.anchor != nil {
		return *r.anchor, true
	}
	if r.override == nil {
		return model.GeographicAnchor{}, false
	}
	a := *r.override
	r.anchor = &a
	return a, true
}

// Offer feeds a location fix. established is true only for the fix that
// creates the anchor; later fixes can only lower the watermark.
func (r *OriginResolver) Offer(fix model.LocationFix) (anchor model.GeographicAnchor, established bool, err error) {
	if fix.HorizontalAccuracy < 0 || math.IsNaN(fix.HorizontalAccuracy) {
		return model.GeographicAnchor{}, false, fmt.Errorf("%w: horizontal accuracy %v", ErrInvalidLocationFix, fix.HorizontalAccuracy)
	}
	if fix.HorizontalAccuracy < r.watermark {
		r.watermark = fix.HorizontalAccuracy
	}
	if r.anchor != nil {
		return *r.anchor, false, nil
	}
	a := model.AnchorFromGeo(fix.Geo())
	r.anchor = &a
	return a, true, nil
}

// Anchor returns the established anchor, if any.
func (r *OriginResolver) Anchor() (model.GeographicAnchor, bool) {
	if r.anchor == nil {
		return model.GeographicAnchor{}, false
	}
	return *r.anchor, true
}

// Watermark returns the best horizontal accuracy seen since the last reset.
func (r *OriginResolver) Watermark() float64 {
	return r.watermark
}

// Reset drops the anchor and the watermark. The override is kept.
func (r *OriginResolver) Reset() {
	r.anchor = nil
	r.watermark = WorstAccuracy
}

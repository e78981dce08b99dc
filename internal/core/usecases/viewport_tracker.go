package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/pkg/geospatial"
)

const (
	// DefaultRadiusKm is the proximity radius used for every viewport query.
	DefaultRadiusKm = 2.5
	// DefaultSpanMeters is the region size used when centering on the user.
	DefaultSpanMeters = 2000.0
)

// QuerySink accepts replacement proximity queries.
type QuerySink interface {
	SetActiveQuery(ctx context.Context, query domain.ProximityQuery) error
}

// TrackerOptions tunes a ViewportTracker. Zero values select the defaults.
type TrackerOptions struct {
	RadiusKm   float64
	SpanMeters float64
	// MinRequeryMeters suppresses re-queries for settles closer than this to
	// the last queried center. Zero re-queries on every settle.
	MinRequeryMeters float64
}

// ViewportTracker turns viewport movement into proximity queries and centers
// the map on the user's first location fix.
type ViewportTracker struct {
	widget ports.MapWidget
	sink   QuerySink
	opts   TrackerOptions
	logger *slog.Logger

	centered   bool
	lastCenter *domain.Coordinate
}

// NewViewportTracker creates a new ViewportTracker.
func NewViewportTracker(widget ports.MapWidget, sink QuerySink, opts TrackerOptions, logger *slog.Logger) *ViewportTracker {
	if opts.RadiusKm <= 0 {
		opts.RadiusKm = DefaultRadiusKm
	}
	if opts.SpanMeters <= 0 {
		opts.SpanMeters = DefaultSpanMeters
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewportTracker{widget: widget, sink: sink, opts: opts, logger: logger}
}

// OnFirstLocationFix centers the viewport on the first valid fix of the
// session. It reports whether centering happened on this call.
func (t *ViewportTracker) OnFirstLocationFix(loc domain.Coordinate) bool {
	if t.centered || !loc.Valid() {
		return false
	}
	t.centered = true
	t.widget.SetRegion(loc, t.opts.SpanMeters)
	t.logger.Debug("centered map on first location fix", "location", loc.String())
	return true
}

// OnViewportSettled issues a new proximity query at center.
func (t *ViewportTracker) OnViewportSettled(ctx context.Context, center domain.Coordinate) error {
	if !center.Valid() {
		return center.Validate()
	}
	if t.opts.MinRequeryMeters > 0 && t.lastCenter != nil &&
		geospatial.DistanceMeters(*t.lastCenter, center) < t.opts.MinRequeryMeters {
		return nil
	}
	// A failed query does not count as the last center, so the next settle
	// nearby retries it.
	if err := t.sink.SetActiveQuery(ctx, domain.ProximityQuery{Center: center, RadiusKm: t.opts.RadiusKm}); err != nil {
		return err
	}
	t.lastCenter = &center
	return nil
}

// Centered reports whether the first-fix centering has happened.
func (t *ViewportTracker) Centered() bool {
	return t.centered
}

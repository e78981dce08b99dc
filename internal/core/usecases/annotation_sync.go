package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/snapmap/internal/core/usecases")

// AnnotationSynchronizer keeps a map widget's markers equal to the membership
// of the active proximity query.
//
// It is not safe for concurrent use. All calls, including the proximity
// handlers it registers, must be serialized by the caller (see EventLoop).
type AnnotationSynchronizer struct {
	proximity ports.ProximityService
	widget    ports.MapWidget
	logger    *slog.Logger

	query      *domain.ProximityQuery
	sub        ports.Subscription
	generation uint64
	markers    map[string]domain.Marker
}

// NewAnnotationSynchronizer creates an inactive synchronizer.
func NewAnnotationSynchronizer(proximity ports.ProximityService, widget ports.MapWidget, logger *slog.Logger) *AnnotationSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnotationSynchronizer{
		proximity: proximity,
		widget:    widget,
		logger:    logger,
		markers:   make(map[string]domain.Marker),
	}
}

// SetActiveQuery replaces the active query. The old subscription is torn down
// and every marker removed before the new subscription is opened.
//
// A subscribe failure leaves the query active with no markers; the error is
// returned for logging only.
func (s *AnnotationSynchronizer) SetActiveQuery(ctx context.Context, query domain.ProximityQuery) error {
	ctx, span := tracer.Start(ctx, "AnnotationSynchronizer.SetActiveQuery")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("query.lat", query.Center.Lat),
		attribute.Float64("query.lon", query.Center.Lon),
		attribute.Float64("query.radius_km", query.RadiusKm),
	)

	s.teardown()
	s.clear()

	s.generation++
	gen := s.generation
	s.query = &query
	metrics.QueryReplacements.Inc()

	sub, err := s.proximity.Subscribe(ctx, query, ports.ProximityHandlers{
		Entered: func(id string, loc domain.Coordinate) {
			if !s.current(gen, "entered", id) {
				return
			}
			s.OnEntered(id, loc)
		},
		Exited: func(id string) {
			if !s.current(gen, "exited", id) {
				return
			}
			s.OnExited(id)
		},
	})
	if err != nil {
		metrics.SubscribeErrors.Inc()
		span.RecordError(err)
		s.logger.Warn("proximity subscribe failed", "center", query.Center.String(), "radius_km", query.RadiusKm, "error", err)
		return fmt.Errorf("subscribe proximity query: %w", err)
	}

	s.sub = sub
	metrics.ActiveSubscriptions.Inc()
	s.logger.Info("proximity query active", "center", query.Center.String(), "radius_km", query.RadiusKm, "generation", gen)
	return nil
}

// OnEntered displays a marker for id unless one is already displayed.
func (s *AnnotationSynchronizer) OnEntered(id string, loc domain.Coordinate) {
	if _, ok := s.markers[id]; ok {
		metrics.ProximityEvents.WithLabelValues("entered", "duplicate").Inc()
		return
	}
	m := domain.Marker{ID: id, Title: id, Coordinate: loc, Displayed: true}
	s.markers[id] = m
	s.widget.AddMarker(m)
	metrics.ProximityEvents.WithLabelValues("entered", "applied").Inc()
}

// OnExited removes the marker for id if one is displayed.
func (s *AnnotationSynchronizer) OnExited(id string) {
	m, ok := s.markers[id]
	if !ok {
		metrics.ProximityEvents.WithLabelValues("exited", "missing").Inc()
		return
	}
	delete(s.markers, id)
	m.Displayed = false
	s.widget.RemoveMarker(m)
	metrics.ProximityEvents.WithLabelValues("exited", "applied").Inc()
}

// Displayed returns the displayed markers ordered by id.
func (s *AnnotationSynchronizer) Displayed() []domain.Marker {
	out := make([]domain.Marker, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsDisplayed reports whether a marker for id is on the map.
func (s *AnnotationSynchronizer) IsDisplayed(id string) bool {
	_, ok := s.markers[id]
	return ok
}

// ActiveQuery returns the current query, if any.
func (s *AnnotationSynchronizer) ActiveQuery() (domain.ProximityQuery, bool) {
	if s.query == nil {
		return domain.ProximityQuery{}, false
	}
	return *s.query, true
}

// Close tears down the subscription and clears the map.
func (s *AnnotationSynchronizer) Close() error {
	err := s.teardown()
	s.clear()
	s.query = nil
	s.generation++
	return err
}

// current drops events delivered through a superseded subscription.
func (s *AnnotationSynchronizer) current(gen uint64, event, id string) bool {
	if gen == s.generation {
		return true
	}
	metrics.ProximityEvents.WithLabelValues(event, "stale").Inc()
	s.logger.Debug("dropping stale proximity event", "event", event, "id", id, "generation", gen, "active", s.generation)
	return false
}

func (s *AnnotationSynchronizer) teardown() error {
	if s.sub == nil {
		return nil
	}
	sub := s.sub
	s.sub = nil
	metrics.ActiveSubscriptions.Dec()
	if err := sub.Unsubscribe(); err != nil {
		s.logger.Warn("proximity unsubscribe failed", "error", err)
		return fmt.Errorf("unsubscribe proximity query: %w", err)
	}
	return nil
}

func (s *AnnotationSynchronizer) clear() {
	for id, m := range s.markers {
		delete(s.markers, id)
		m.Displayed = false
		s.widget.RemoveMarker(m)
	}
}

package usecases_test

import (
	"context"
	"errors"
	"sort"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
)

// --- Fake MapWidget ---

type fakeWidget struct {
	regions     []domain.Coordinate
	spans       []float64
	markers     map[string]int // id -> visible copies
	added       []string
	removed     []string
	showsUser   bool
	onSettledFn func(center domain.Coordinate)
	calls       *[]string
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{markers: make(map[string]int)}
}

func (w *fakeWidget) SetRegion(center domain.Coordinate, spanMeters float64) {
	w.regions = append(w.regions, center)
	w.spans = append(w.spans, spanMeters)
}

func (w *fakeWidget) AddMarker(m domain.Marker) {
	w.markers[m.ID]++
	w.added = append(w.added, m.ID)
	w.record("add:" + m.ID)
}

func (w *fakeWidget) RemoveMarker(m domain.Marker) {
	w.markers[m.ID]--
	if w.markers[m.ID] <= 0 {
		delete(w.markers, m.ID)
	}
	w.removed = append(w.removed, m.ID)
	w.record("remove:" + m.ID)
}

func (w *fakeWidget) SetShowsUserLocation(show bool) { w.showsUser = show }

func (w *fakeWidget) OnViewportSettled(fn func(center domain.Coordinate)) { w.onSettledFn = fn }

func (w *fakeWidget) visible() []string {
	ids := make([]string, 0, len(w.markers))
	for id := range w.markers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *fakeWidget) record(call string) {
	if w.calls != nil {
		*w.calls = append(*w.calls, call)
	}
}

// --- Fake ProximityService ---

type fakeSubscription struct {
	query        domain.ProximityQuery
	handlers     ports.ProximityHandlers
	unsubscribed int
	svc          *fakeProximity
	err          error
}

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed++
	if s.svc.calls != nil {
		*s.svc.calls = append(*s.svc.calls, "unsubscribe")
	}
	return s.err
}

type fakeProximity struct {
	subs         []*fakeSubscription
	subscribeErr error
	calls        *[]string
}

func (p *fakeProximity) Subscribe(ctx context.Context, q domain.ProximityQuery, h ports.ProximityHandlers) (ports.Subscription, error) {
	if p.calls != nil {
		*p.calls = append(*p.calls, "subscribe")
	}
	if p.subscribeErr != nil {
		return nil, p.subscribeErr
	}
	sub := &fakeSubscription{query: q, handlers: h, svc: p}
	p.subs = append(p.subs, sub)
	return sub, nil
}

func (p *fakeProximity) last() *fakeSubscription {
	if len(p.subs) == 0 {
		return nil
	}
	return p.subs[len(p.subs)-1]
}

var errBackend = errors.New("backend unavailable")

// --- Fake LocationService ---

type fakeLocation struct {
	status       domain.AuthorizationStatus
	requests     int
	onAuthFn     func(domain.AuthorizationStatus)
	onLocationFn func(domain.Coordinate)
}

func (l *fakeLocation) AuthorizationStatus() domain.AuthorizationStatus { return l.status }
func (l *fakeLocation) RequestAuthorization()                         { l.requests++ }
func (l *fakeLocation) OnLocationFix(fn func(domain.Coordinate))      { l.onLocationFn = fn }
func (l *fakeLocation) OnAuthorizationChanged(fn func(domain.AuthorizationStatus)) {
	l.onAuthFn = fn
}

// --- Fake Navigator ---

type fakeNavigator struct{ cameraShown int }

func (n *fakeNavigator) ShowCamera() { n.cameraShown++ }

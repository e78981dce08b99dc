package ports

import (
	"context"

	"github.com/samirrijal/snapmap/internal/core/domain"
)

// MapWidget is the rendering surface of a map client.
type MapWidget interface {
	SetRegion(center domain.Coordinate, spanMeters float64)
	AddMarker(marker domain.Marker)
	RemoveMarker(marker domain.Marker)
	SetShowsUserLocation(show bool)
	// OnViewportSettled registers fn to run each time the visible region stops changing.
	OnViewportSettled(fn func(center domain.Coordinate))
}

// LocationService is the device location source.
type LocationService interface {
	AuthorizationStatus() domain.AuthorizationStatus
	RequestAuthorization()
	OnAuthorizationChanged(fn func(status domain.AuthorizationStatus))
	OnLocationFix(fn func(loc domain.Coordinate))
}

// Navigator switches screens. Fire-and-forget.
type Navigator interface {
	ShowCamera()
}

// ProximityHandlers receive membership changes for one proximity subscription.
type ProximityHandlers struct {
	Entered func(id string, loc domain.Coordinate)
	Exited  func(id string)
}

// Subscription is an owned handle on a live stream. Unsubscribe must be idempotent.
type Subscription interface {
	Unsubscribe() error
}

// ProximityService streams entered/exited events for a radius query.
type ProximityService interface {
	Subscribe(ctx context.Context, query domain.ProximityQuery, handlers ProximityHandlers) (Subscription, error)
}

package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
)

// MapController binds the map widget, location service and navigator of one
// map screen to a ViewportTracker and AnnotationSynchronizer.
type MapController struct {
	widget    ports.MapWidget
	location  ports.LocationService
	navigator ports.Navigator
	tracker   *ViewportTracker
	sync      *AnnotationSynchronizer
	logger    *slog.Logger
}

// NewMapController wires the two core components against the collaborators.
func NewMapController(
	widget ports.MapWidget,
	location ports.LocationService,
	navigator ports.Navigator,
	proximity ports.ProximityService,
	opts TrackerOptions,
	logger *slog.Logger,
) *MapController {
	if logger == nil {
		logger = slog.Default()
	}
	sync := NewAnnotationSynchronizer(proximity, widget, logger)
	return &MapController{
		widget:    widget,
		location:  location,
		navigator: navigator,
		tracker:   NewViewportTracker(widget, sync, opts, logger),
		sync:      sync,
		logger:    logger,
	}
}

// Start registers the controller's callbacks and applies the current
// location authorization.
func (c *MapController) Start(ctx context.Context) {
	c.widget.OnViewportSettled(func(center domain.Coordinate) {
		if err := c.tracker.OnViewportSettled(ctx, center); err != nil {
			c.logger.Warn("viewport query not applied", "center", center.String(), "error", err)
		}
	})
	c.location.OnLocationFix(func(loc domain.Coordinate) {
		c.tracker.OnFirstLocationFix(loc)
	})
	c.location.OnAuthorizationChanged(c.OnAuthorizationChanged)

	if c.location.AuthorizationStatus().Authorized() {
		c.widget.SetShowsUserLocation(true)
		return
	}
	c.location.RequestAuthorization()
}

// OnAuthorizationChanged shows the user's location once permission is granted.
// Denial leaves the map without a user location.
func (c *MapController) OnAuthorizationChanged(status domain.AuthorizationStatus) {
	if status.Authorized() {
		c.widget.SetShowsUserLocation(true)
		return
	}
	c.logger.Debug("location not authorized", "status", string(status))
}

// ShowCamera switches to the camera screen.
func (c *MapController) ShowCamera() {
	c.navigator.ShowCamera()
}

// Synchronizer exposes the annotation synchronizer.
func (c *MapController) Synchronizer() *AnnotationSynchronizer { return c.sync }

// Stop closes the active proximity subscription.
func (c *MapController) Stop() error {
	return c.sync.Close()
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/usecases"
	"github.com/samirrijal/snapmap/internal/pkg/metrics"
)

const pingInterval = 30 * time.Second

// wsInbound is a client message on /ws/map.
//
//	{"type":"authorization","status":"authorized_when_in_use"}
//	{"type":"location_fix","lat":43.26,"lon":-2.93}
//	{"type":"viewport_settled","lat":43.26,"lon":-2.93}
//	{"type":"camera"}
type wsInbound struct {
	Type   string   `json:"type"`
	Status string   `json:"status,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

// mapSession adapts one WebSocket client to the widget, location service and
// navigator a MapController drives. Every method runs on the session's event
// loop; send is the only part touched from other goroutines.
type mapSession struct {
	send   func(v any) error
	logger *slog.Logger

	status    domain.AuthorizationStatus
	onSettled func(domain.Coordinate)
	onAuth    func(domain.AuthorizationStatus)
	onFix     func(domain.Coordinate)
	onCamera  func()
}

func newMapSession(send func(v any) error, status domain.AuthorizationStatus, logger *slog.Logger) *mapSession {
	return &mapSession{send: send, status: status, logger: logger}
}

func (s *mapSession) emit(v fiber.Map) {
	if err := s.send(v); err != nil {
		s.logger.Debug("ws write failed", "type", v["type"], "error", err)
	}
}

// MapWidget

func (s *mapSession) SetRegion(center domain.Coordinate, spanMeters float64) {
	s.emit(fiber.Map{"type": "set_region", "lat": center.Lat, "lon": center.Lon, "span_meters": spanMeters})
}

func (s *mapSession) AddMarker(m domain.Marker) {
	s.emit(fiber.Map{"type": "marker_added", "id": m.ID, "title": m.Title, "lat": m.Coordinate.Lat, "lon": m.Coordinate.Lon})
}

func (s *mapSession) RemoveMarker(m domain.Marker) {
	s.emit(fiber.Map{"type": "marker_removed", "id": m.ID})
}

func (s *mapSession) SetShowsUserLocation(show bool) {
	s.emit(fiber.Map{"type": "shows_user_location", "enabled": show})
}

func (s *mapSession) OnViewportSettled(fn func(center domain.Coordinate)) { s.onSettled = fn }

// LocationService

func (s *mapSession) AuthorizationStatus() domain.AuthorizationStatus { return s.status }

func (s *mapSession) RequestAuthorization() {
	s.emit(fiber.Map{"type": "request_authorization"})
}

func (s *mapSession) OnAuthorizationChanged(fn func(status domain.AuthorizationStatus)) {
	s.onAuth = fn
}

func (s *mapSession) OnLocationFix(fn func(loc domain.Coordinate)) { s.onFix = fn }

// Navigator

func (s *mapSession) ShowCamera() {
	s.emit(fiber.Map{"type": "navigate", "screen": "camera"})
}

// handle dispatches one client message. Malformed messages are answered with
// an error message and the session continues.
func (s *mapSession) handle(raw []byte) {
	var m wsInbound
	if err := json.Unmarshal(raw, &m); err != nil {
		s.emit(fiber.Map{"type": "error", "message": "invalid JSON"})
		return
	}

	switch m.Type {
	case "authorization":
		s.status = domain.ParseAuthorizationStatus(m.Status)
		if s.onAuth != nil {
			s.onAuth(s.status)
		}

	case "location_fix", "viewport_settled":
		if m.Lat == nil || m.Lon == nil {
			s.emit(fiber.Map{"type": "error", "message": m.Type + " requires lat and lon"})
			return
		}
		loc := domain.Coordinate{Lat: *m.Lat, Lon: *m.Lon}
		if m.Type == "location_fix" {
			if s.onFix != nil {
				s.onFix(loc)
			}
		} else if s.onSettled != nil {
			s.onSettled(loc)
		}

	case "camera":
		if s.onCamera != nil {
			s.onCamera()
		}

	default:
		s.emit(fiber.Map{"type": "error", "message": "unknown message type: " + m.Type})
	}
}

// MapSessionHandler serves /ws/map. Each connection gets its own event loop
// and MapController; client messages and proximity events are applied on
// that loop in arrival order.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		logger := slog.Default().With("remote_addr", c.RemoteAddr().String())
		logger.Info("map session opened")

		var wmu sync.Mutex
		send := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			wmu.Lock()
			defer wmu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := usecases.NewEventLoop(deps.EventBuffer)
		go loop.Run(ctx)

		session := newMapSession(send, domain.ParseAuthorizationStatus(c.Query("auth")), logger)
		controller := usecases.NewMapController(
			session, session, session,
			usecases.SerializedProximity(deps.Proximity, loop),
			deps.Map, logger,
		)
		session.onCamera = controller.ShowCamera
		_ = loop.Post(func() { controller.Start(ctx) })

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					wmu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					wmu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			if err := loop.Post(func() { session.handle(msg) }); err != nil {
				break
			}
		}
		close(done)

		// Tear down on the loop so no handler runs concurrently with Stop.
		stopped := make(chan struct{})
		if err := loop.Post(func() {
			if err := controller.Stop(); err != nil {
				logger.Warn("map session teardown", "error", err)
			}
			close(stopped)
		}); err == nil {
			select {
			case <-stopped:
			case <-loop.Done():
			}
		}
		loop.Stop()

		logger.Info("map session closed")
	}
}

package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/snapmap/internal/adapters/postgres"
	"github.com/samirrijal/snapmap/internal/adapters/valkey"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Posts     *usecases.PostService
	Proximity ports.ProximityService
	// Map tunes each /ws/map session; EventBuffer sizes its event queue.
	Map         usecases.TrackerOptions
	EventBuffer int
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}

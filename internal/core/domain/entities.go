package domain

import (
	"errors"
	"time"
)

// ErrPostNotFound is returned when a post id does not exist.
var ErrPostNotFound = errors.New("post not found")

// Post is a user-submitted item pinned to a location.
type Post struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Caption   string     `json:"caption,omitempty"`
	MediaURL  string     `json:"media_url,omitempty"`
	Location  Coordinate `json:"location"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Distance  *float64   `json:"distance,omitempty"` // meters, computed field
}

// Marker is an annotation shown on a map client. Identity is ID.
type Marker struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Coordinate Coordinate `json:"coordinate"`
	Displayed  bool       `json:"displayed"`
}

// PostEventType distinguishes feed records.
type PostEventType string

const (
	// PostLocated is emitted when a post is created or moved.
	PostLocated PostEventType = "located"
	// PostRemoved is emitted when a post is deleted or expires.
	PostRemoved PostEventType = "removed"
)

// PostEvent is a single record on the live post-location feed.
type PostEvent struct {
	Type     PostEventType `json:"type"`
	PostID   string        `json:"post_id"`
	Location Coordinate    `json:"location"`
	Time     time.Time     `json:"time"`
}

// AuthorizationStatus mirrors the device's location permission state.
type AuthorizationStatus string

const (
	AuthNotDetermined       AuthorizationStatus = "not_determined"
	AuthDenied              AuthorizationStatus = "denied"
	AuthRestricted          AuthorizationStatus = "restricted"
	AuthAuthorizedWhenInUse AuthorizationStatus = "authorized_when_in_use"
	AuthAuthorizedAlways    AuthorizationStatus = "authorized_always"
)

// Authorized reports whether the status allows showing the user's location.
func (s AuthorizationStatus) Authorized() bool {
	return s == AuthAuthorizedWhenInUse || s == AuthAuthorizedAlways
}

// ParseAuthorizationStatus maps a wire string to a status, defaulting to not_determined.
func ParseAuthorizationStatus(s string) AuthorizationStatus {
	switch AuthorizationStatus(s) {
	case AuthDenied, AuthRestricted, AuthAuthorizedWhenInUse, AuthAuthorizedAlways:
		return AuthorizationStatus(s)
	default:
		return AuthNotDetermined
	}
}

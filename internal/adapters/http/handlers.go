package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/usecases"
)

// createPostRequest is the body of POST /v1/posts.
type createPostRequest struct {
	AuthorID   string   `json:"author_id"`
	Caption    string   `json:"caption"`
	MediaURL   string   `json:"media_url"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	TTLMinutes int      `json:"ttl_minutes"`
}

// moveRequest is the body of PUT /v1/posts/:id/location.
type moveRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func coordinateOf(lat, lon *float64) (domain.Coordinate, bool) {
	if lat == nil || lon == nil {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: *lat, Lon: *lon}, true
}

// CreatePostHandler stores a new post and puts it on the live map.
func CreatePostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		loc, ok := coordinateOf(req.Lat, req.Lon)
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		if req.TTLMinutes < 0 {
			return errBadRequest(c, "ttl_minutes must not be negative")
		}

		post, err := deps.Posts.CreatePost(c.UserContext(), usecases.NewPost{
			AuthorID: req.AuthorID,
			Caption:  req.Caption,
			MediaURL: req.MediaURL,
			Location: loc,
			TTL:      time.Duration(req.TTLMinutes) * time.Minute,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/posts/" + post.ID)
		return c.Status(fiber.StatusCreated).JSON(post)
	}
}

// MovePostHandler relocates a post.
func MovePostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req moveRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		loc, ok := coordinateOf(req.Lat, req.Lon)
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}

		if err := deps.Posts.MovePost(c.UserContext(), c.Params("id"), loc); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeletePostHandler removes a post. Deleting an unknown id succeeds.
func DeletePostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Posts.RemovePost(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetPostHandler returns a single post by ID.
func GetPostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		post, err := deps.Posts.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(post)
	}
}

// NearbyPostsHandler returns posts within radius_km of lat/lon, nearest first.
func NearbyPostsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		center := domain.Coordinate{
			Lat: c.QueryFloat("lat", 0),
			Lon: c.QueryFloat("lon", 0),
		}
		radius := c.QueryFloat("radius_km", usecases.DefaultRadiusKm)
		limit := c.QueryInt("limit", 0)

		posts, err := deps.Posts.FindNearby(c.UserContext(), center, radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if posts == nil {
			posts = []domain.Post{}
		}
		return c.JSON(posts)
	}
}

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/snapmap/internal/adapters/http"
	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/usecases"
)

// ---- Mock repository and publisher ----

type mockPostRepo struct {
	upsertFn     func(ctx context.Context, p *domain.Post) error
	updateLocFn  func(ctx context.Context, id string, loc domain.Coordinate) error
	deleteFn     func(ctx context.Context, id string) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Post, error)
	findNearbyFn func(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.Post, error)
}

func (m *mockPostRepo) Upsert(ctx context.Context, p *domain.Post) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return nil
}
func (m *mockPostRepo) UpdateLocation(ctx context.Context, id string, loc domain.Coordinate) error {
	if m.updateLocFn != nil {
		return m.updateLocFn(ctx, id, loc)
	}
	return nil
}
func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrPostNotFound
}
func (m *mockPostRepo) FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.Post, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, center, radiusMeters, limit)
	}
	return nil, nil
}

type mockPublisher struct {
	events []domain.PostEvent
}

func (m *mockPublisher) PublishPostEvent(ctx context.Context, e *domain.PostEvent) error {
	m.events = append(m.events, *e)
	return nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(repo *mockPostRepo, pub *mockPublisher) *handler.Dependencies {
	if repo == nil {
		repo = &mockPostRepo{}
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	return &handler.Dependencies{
		Posts: usecases.NewPostService(repo, pub, nil, nil),
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, body), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Post handler tests ----

func TestCreatePost_Success(t *testing.T) {
	var stored *domain.Post
	pub := &mockPublisher{}
	app := setupApp(makeDeps(&mockPostRepo{
		upsertFn: func(ctx context.Context, p *domain.Post) error {
			stored = p
			return nil
		},
	}, pub))

	body := `{"author_id":"u1","caption":"sunset","lat":43.2630,"lon":-2.9350,"ttl_minutes":60}`
	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var post domain.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatal(err)
	}
	if post.ID == "" || stored == nil || stored.ID != post.ID {
		t.Fatalf("expected stored post, got %+v", post)
	}
	if resp.Header.Get("Location") != "/v1/posts/"+post.ID {
		t.Errorf("unexpected Location header %q", resp.Header.Get("Location"))
	}
	if post.ExpiresAt == nil || post.ExpiresAt.Sub(post.CreatedAt) != time.Hour {
		t.Errorf("expected expiry one hour after creation, got %v", post.ExpiresAt)
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.PostLocated {
		t.Errorf("expected a located event, got %+v", pub.events)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	cases := map[string]string{
		"bad json":       `{"author_id":`,
		"missing coords": `{"author_id":"u1"}`,
		"out of range":   `{"author_id":"u1","lat":95,"lon":0}`,
		"no author":      `{"lat":43.26,"lon":-2.93}`,
		"negative ttl":   `{"author_id":"u1","lat":43.26,"lon":-2.93,"ttl_minutes":-5}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", name, resp.StatusCode)
			continue
		}
		if apiErr := decodeError(t, resp.Body); apiErr.Code != "bad_request" {
			t.Errorf("%s: expected bad_request code, got %q", name, apiErr.Code)
		}
	}
}

func TestGetPost_NotFound(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/posts/nope", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %q", apiErr.Code)
	}
}

func TestGetPost_Success(t *testing.T) {
	app := setupApp(makeDeps(&mockPostRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id, AuthorID: "u1", Location: domain.Coordinate{Lat: 43.26, Lon: -2.93}}, nil
		},
	}, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/posts/p1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=60" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	var post domain.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatal(err)
	}
	if post.ID != "p1" {
		t.Errorf("expected p1, got %s", post.ID)
	}
}

func TestNearbyPosts_Success(t *testing.T) {
	var gotRadius float64
	app := setupApp(makeDeps(&mockPostRepo{
		findNearbyFn: func(ctx context.Context, c domain.Coordinate, r float64, limit int) ([]domain.Post, error) {
			gotRadius = r
			return []domain.Post{{ID: "p1", Location: c}}, nil
		},
	}, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/posts/nearby?lat=43.26&lon=-2.93&radius_km=1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var posts []domain.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Errorf("unexpected posts %+v", posts)
	}
	if gotRadius != 1000 {
		t.Errorf("expected radius 1000m, got %v", gotRadius)
	}
}

func TestNearbyPosts_EmptyIsArray(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/posts/nearby?lat=43.26&lon=-2.93", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := strings.TrimSpace(string(readBody(t, resp.Body))); body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestNearbyPosts_BadRequests(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	for _, url := range []string{
		"/v1/posts/nearby",
		"/v1/posts/nearby?lat=43.26",
		"/v1/posts/nearby?lat=43.26&lon=-2.93&radius_km=0",
		"/v1/posts/nearby?lat=43.26&lon=-2.93&radius_km=500",
		"/v1/posts/nearby?lat=-180&lon=-180",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", url, resp.StatusCode)
		}
	}
}

func TestMovePost(t *testing.T) {
	var moved domain.Coordinate
	app := setupApp(makeDeps(&mockPostRepo{
		updateLocFn: func(ctx context.Context, id string, loc domain.Coordinate) error {
			if id != "p1" {
				return domain.ErrPostNotFound
			}
			moved = loc
			return nil
		},
	}, nil))

	req := httptest.NewRequest("PUT", "/v1/posts/p1/location", strings.NewReader(`{"lat":43.3,"lon":-2.9}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if moved != (domain.Coordinate{Lat: 43.3, Lon: -2.9}) {
		t.Errorf("unexpected location %v", moved)
	}

	req = httptest.NewRequest("PUT", "/v1/posts/other/location", strings.NewReader(`{"lat":43.3,"lon":-2.9}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown post, got %d", resp.StatusCode)
	}
}

func TestDeletePost(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(&mockPostRepo{
		deleteFn: func(ctx context.Context, id string) error { return domain.ErrPostNotFound },
	}, pub))

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/posts/gone", nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.PostRemoved {
		t.Errorf("expected removed event, got %+v", pub.events)
	}
}

func TestDeletePost_BackendError(t *testing.T) {
	app := setupApp(makeDeps(&mockPostRepo{
		deleteFn: func(ctx context.Context, id string) error { return errors.New("db down") },
	}, nil))

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/posts/p1", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); strings.Contains(apiErr.Message, "db down") {
		t.Error("internal error details must not leak")
	}
}

// ---- Health, GraphQL, WebSocket ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without database, got %d", resp.StatusCode)
	}
}

func TestGraphQL_NearbyPosts(t *testing.T) {
	app := setupApp(makeDeps(&mockPostRepo{
		findNearbyFn: func(ctx context.Context, c domain.Coordinate, r float64, limit int) ([]domain.Post, error) {
			return []domain.Post{{ID: "p1", AuthorID: "u1", Location: c}}, nil
		},
	}, nil))

	body := `{"query":"{ nearbyPosts(lat: 43.26, lon: -2.93, radiusKm: 1) { id author_id location { lat lon } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result struct {
		Data struct {
			NearbyPosts []struct {
				ID       string `json:"id"`
				AuthorID string `json:"author_id"`
				Location struct {
					Lat float64 `json:"lat"`
				} `json:"location"`
			} `json:"nearbyPosts"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Data.NearbyPosts) != 1 || result.Data.NearbyPosts[0].ID != "p1" || result.Data.NearbyPosts[0].Location.Lat != 43.26 {
		t.Errorf("unexpected data %+v", result.Data)
	}
}

func TestMapSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws/map", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/snapmap/internal/core/domain"
)

// PostRepo implements ports.PostRepository with pgx and PostGIS.
type PostRepo struct {
	db *DB
}

// NewPostRepo creates a new PostRepo.
func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

const postColumns = `id, author_id, caption, media_url,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       created_at, expires_at`

// Upsert inserts or updates a single post.
func (r *PostRepo) Upsert(ctx context.Context, p *domain.Post) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO posts (id, author_id, caption, media_url, location, created_at, expires_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET caption = EXCLUDED.caption, media_url = EXCLUDED.media_url,
		    location = EXCLUDED.location, expires_at = EXCLUDED.expires_at
	`, p.ID, p.AuthorID, p.Caption, p.MediaURL, p.Location.Lon, p.Location.Lat, p.CreatedAt, p.ExpiresAt)
	return err
}

// UpdateLocation moves a post.
func (r *PostRepo) UpdateLocation(ctx context.Context, id string, loc domain.Coordinate) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE posts SET location = ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography
		WHERE id = $1
	`, id, loc.Lon, loc.Lat)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// Delete removes a post.
func (r *PostRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// GetByID returns a post by id.
func (r *PostRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var p domain.Post
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts WHERE id = $1
	`, id).Scan(
		&p.ID, &p.AuthorID, &p.Caption, &p.MediaURL,
		&p.Location.Lat, &p.Location.Lon,
		&p.CreatedAt, &p.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &p, nil
}

// FindNearby returns unexpired posts within radiusMeters using PostGIS ST_DWithin
// on the sphere, matching the haversine distance used for live updates.
func (r *PostRepo) FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.Post, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+postColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM posts
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3, false)
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY distance
		LIMIT $4
	`, center.Lon, center.Lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var dist float64
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Caption, &p.MediaURL,
			&p.Location.Lat, &p.Location.Lon,
			&p.CreatedAt, &p.ExpiresAt,
			&dist,
		); err != nil {
			return nil, err
		}
		p.Distance = &dist
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

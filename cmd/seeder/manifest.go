package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/usecases"
)

// Manifest lists the posts to seed.
type Manifest struct {
	Posts []PostEntry `json:"posts"`
}

type PostEntry struct {
	AuthorID   string  `json:"author_id"`
	Caption    string  `json:"caption"`
	MediaURL   string  `json:"media_url"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	TTLMinutes int     `json:"ttl_minutes"`
}

// NewPost converts the entry into service input.
func (e PostEntry) NewPost() usecases.NewPost {
	return usecases.NewPost{
		AuthorID: e.AuthorID,
		Caption:  e.Caption,
		MediaURL: e.MediaURL,
		Location: domain.Coordinate{Lat: e.Lat, Lon: e.Lon},
		TTL:      time.Duration(e.TTLMinutes) * time.Minute,
	}
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Package catalog wraps the remote movie catalog behind calls that never
// fail outward: each returns a Result whose value is empty on failure, and
// failures are reported to the user through a notifier.
package catalog

import (
	"context"
	"errors"
)

// Movie is a movie record as returned by the remote catalog.
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	PosterURL   string   `json:"poster_url,omitempty"`
	ReleaseDate string   `json:"release_date"`
	Overview    string   `json:"overview"`
	VoteAverage float64  `json:"vote_average"`
	Genres      []string `json:"genres,omitempty"`
}

// Source is the raw catalog provider. Implementations return errors; Service
// turns them into Results.
type Source interface {
	SearchMovies(ctx context.Context, query string) ([]Movie, error)
	GetMovie(ctx context.Context, id string) (*Movie, error)
	PopularMovies(ctx context.Context) ([]Movie, error)
}

var (
	// ErrNotFound is returned by a Source when the catalog has no such movie.
	ErrNotFound = errors.New("movie not found")
	// ErrInvalidID is returned by a Source for ids it cannot address.
	ErrInvalidID = errors.New("invalid movie id")
)

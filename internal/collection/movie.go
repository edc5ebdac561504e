package collection

import (
	"github.com/goccy/go-json"

	"github.com/reelshelf/reelshelf/internal/catalog"
)

// Movie is a saved movie: a catalog record plus the user's watched flag.
type Movie struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	Watched     bool    `json:"watched"`
	AddedAt     string  `json:"added_at,omitempty"`
}

// FromCatalog builds an unwatched collection entry from a catalog record.
func FromCatalog(m catalog.Movie) Movie {
	return Movie{
		ID:          m.ID,
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Overview:    m.Overview,
		VoteAverage: m.VoteAverage,
	}
}

// Stats summarizes the collection for the watched / to-watch tabs.
type Stats struct {
	Total     int `json:"total"`
	Watched   int `json:"watched"`
	Unwatched int `json:"unwatched"`
}

// Encode serializes movies into the snapshot format.
func Encode(movies []Movie) ([]byte, error) {
	if movies == nil {
		movies = []Movie{}
	}
	return json.Marshal(movies)
}

// Decode parses a snapshot. Entries without an id are dropped and repeated
// ids keep their first occurrence.
func Decode(data []byte) ([]Movie, error) {
	var raw []Movie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	movies := make([]Movie, 0, len(raw))
	for _, m := range raw {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		movies = append(movies, m)
	}
	return movies, nil
}

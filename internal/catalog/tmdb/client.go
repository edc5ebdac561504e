package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrMovieNotFound = catalog.ErrNotFound
	ErrInvalidID     = catalog.ErrInvalidID
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// posterSize matches the size the frontend renders cards at.
const posterSize = "w342"

// movieGenres maps TMDB movie genre ids to names for list endpoints, which
// only carry ids.
var movieGenres = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	if cfg.Language == "" {
		cfg.Language = "en-US"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		config:     cfg,
		logger:     logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SearchMovies searches for movies by free text, first page only.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]catalog.Movie, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := c.baseParams()
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var response MoviesResponse
	if err := c.doRequest(ctx, c.config.BaseURL+"/search/movie", params, &response); err != nil {
		return nil, err
	}

	results := c.toMovies(response.Results)

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Movie search completed")

	return results, nil
}

// GetMovie gets detailed movie info by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, id string) (*catalog.Movie, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	numericID, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || numericID <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var details MovieDetails
	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, numericID)
	if err := c.doRequest(ctx, endpoint, c.baseParams(), &details); err != nil {
		return nil, err
	}

	movie := c.detailsToMovie(details)

	c.logger.Debug().
		Int("id", numericID).
		Str("title", movie.Title).
		Msg("Got movie details")

	return &movie, nil
}

// PopularMovies returns the first page of TMDB's popular movies.
func (c *Client) PopularMovies(ctx context.Context) ([]catalog.Movie, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := c.baseParams()
	params.Set("page", "1")

	var response MoviesResponse
	if err := c.doRequest(ctx, c.config.BaseURL+"/movie/popular", params, &response); err != nil {
		return nil, err
	}

	results := c.toMovies(response.Results)
	c.logger.Debug().Int("results", len(results)).Msg("Got popular movies")
	return results, nil
}

// GetImageURL returns a full image URL for a given path and size.
// Size options: "w92", "w154", "w185", "w342", "w500", "w780", "original"
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", c.config.Language)
	return params
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	reqURL := endpoint
	if len(params) > 0 {
		reqURL = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) toMovies(results []MovieResult) []catalog.Movie {
	movies := make([]catalog.Movie, len(results))
	for i, r := range results {
		genres := make([]string, 0, len(r.GenreIDs))
		for _, id := range r.GenreIDs {
			if name, ok := movieGenres[id]; ok {
				genres = append(genres, name)
			}
		}

		movies[i] = catalog.Movie{
			ID:          strconv.Itoa(r.ID),
			Title:       r.Title,
			PosterPath:  r.PosterPath,
			ReleaseDate: r.ReleaseDate,
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
			Genres:      genres,
		}
		if r.PosterPath != nil {
			movies[i].PosterURL = c.GetImageURL(*r.PosterPath, posterSize)
		}
	}
	return movies
}

func (c *Client) detailsToMovie(details MovieDetails) catalog.Movie {
	genres := make([]string, len(details.Genres))
	for i, g := range details.Genres {
		genres[i] = g.Name
	}

	movie := catalog.Movie{
		ID:          strconv.Itoa(details.ID),
		Title:       details.Title,
		PosterPath:  details.PosterPath,
		ReleaseDate: details.ReleaseDate,
		Overview:    details.Overview,
		VoteAverage: details.VoteAverage,
		Genres:      genres,
	}
	if details.PosterPath != nil {
		movie.PosterURL = c.GetImageURL(*details.PosterPath, posterSize)
	}
	return movie
}

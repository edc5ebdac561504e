package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/reelshelf/reelshelf/internal/metrics"
	"github.com/reelshelf/reelshelf/internal/notification"
)

// User-facing failure notices.
const (
	msgSearchFailed  = "Failed to fetch movies"
	msgDetailsFailed = "Failed to fetch movie details"
	msgPopularFailed = "Failed to fetch popular movies"
)

const breakerName = "catalog"

// Result is the outcome of a catalog call. On failure Value holds the empty
// value for its type and Err says why.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Catalog is what the rest of the application consumes.
type Catalog interface {
	SearchByText(ctx context.Context, query string) Result[[]Movie]
	GetByID(ctx context.Context, id string) Result[*Movie]
	GetPopular(ctx context.Context) Result[[]Movie]
}

// BreakerConfig tunes the circuit breaker around the source.
type BreakerConfig struct {
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open -> half-open wait
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Service implements Catalog on top of a Source.
type Service struct {
	source   Source
	breaker  *gobreaker.CircuitBreaker[any]
	notifier notification.Notifier
	logger   zerolog.Logger
}

var _ Catalog = (*Service)(nil)

// NewService creates a catalog service.
func NewService(source Source, notifier notification.Notifier, cfg BreakerConfig, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	logger = logger.With().Str("component", "catalog").Logger()

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// A missing movie, a malformed id or an aborted request says nothing
		// about catalog health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Service{
		source:   source,
		breaker:  breaker,
		notifier: notifier,
		logger:   logger,
	}
}

// SearchByText searches the catalog. Blank queries return an empty result
// without contacting the catalog.
func (s *Service) SearchByText(ctx context.Context, query string) Result[[]Movie] {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.CatalogRequests.WithLabelValues("search", "skipped").Inc()
		return Result[[]Movie]{Value: []Movie{}}
	}

	movies, err := call(s, "search", func() ([]Movie, error) {
		return s.source.SearchMovies(ctx, query)
	})
	if err != nil {
		s.fail(err, msgSearchFailed, "Error searching movies", "query", query)
		return Result[[]Movie]{Value: []Movie{}, Err: err}
	}
	if movies == nil {
		movies = []Movie{}
	}
	return Result[[]Movie]{Value: movies}
}

// GetByID fetches one movie. A failed lookup yields a nil Value.
func (s *Service) GetByID(ctx context.Context, id string) Result[*Movie] {
	movie, err := call(s, "details", func() (*Movie, error) {
		return s.source.GetMovie(ctx, id)
	})
	if err != nil {
		s.fail(err, msgDetailsFailed, "Error fetching movie details", "id", id)
		return Result[*Movie]{Err: err}
	}
	return Result[*Movie]{Value: movie}
}

// GetPopular returns the catalog's current popular movies.
func (s *Service) GetPopular(ctx context.Context) Result[[]Movie] {
	movies, err := call(s, "popular", func() ([]Movie, error) {
		return s.source.PopularMovies(ctx)
	})
	if err != nil {
		s.fail(err, msgPopularFailed, "Error fetching popular movies")
		return Result[[]Movie]{Value: []Movie{}, Err: err}
	}
	if movies == nil {
		movies = []Movie{}
	}
	return Result[[]Movie]{Value: movies}
}

func (s *Service) fail(err error, notice, logMsg string, fields ...string) {
	if errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Msg("Catalog request canceled by caller")
		return
	}

	event := s.logger.Error().Err(err)
	for i := 0; i+1 < len(fields); i += 2 {
		event = event.Str(fields[i], fields[i+1])
	}
	event.Msg(logMsg)
	s.notifier.Notify(notification.SeverityError, notice)
}

// call runs fn through the circuit breaker and records metrics.
func call[T any](s *Service, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	var zero T

	out, err := s.breaker.Execute(func() (any, error) {
		return fn()
	})
	metrics.ObserveCatalogRequest(operation, start, err)
	if err != nil {
		return zero, err
	}

	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("catalog: unexpected result type %T", out)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

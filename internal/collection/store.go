// Package collection keeps the user's saved movies and persists them to a
// durable storage slot after every change.
package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/metrics"
	"github.com/reelshelf/reelshelf/internal/notification"
	"github.com/reelshelf/reelshelf/internal/storage"
)

// SlotKey names the storage slot holding the collection snapshot.
const SlotKey = "movieCollection"

// EventUpdated is broadcast with the full list after each persisted change.
const EventUpdated = "collection:updated"

// User-facing notices.
const (
	msgAlreadyAdded = "Movie already in collection"
	msgAdded        = "Added to collection"
	msgRemoved      = "Removed from collection"
	msgSaveFailed   = "Failed to save collection"
)

// Store is the single source of truth for the user's saved movies.
// Operations are serialized; each change is written through to the slot
// before the call returns.
type Store struct {
	mu       sync.Mutex
	movies   []Movie
	slot     storage.Slot
	notifier notification.Notifier
	events   notification.Broadcaster
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBroadcaster publishes EventUpdated through b.
func WithBroadcaster(b notification.Broadcaster) Option {
	return func(s *Store) { s.events = b }
}

// WithClock overrides the clock used to stamp AddedAt.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore creates a store and loads the snapshot from slot. A missing or
// unreadable snapshot yields an empty collection.
func NewStore(ctx context.Context, slot storage.Slot, notifier notification.Notifier, logger zerolog.Logger, opts ...Option) *Store {
	if notifier == nil {
		notifier = notification.Nop{}
	}

	s := &Store{
		slot:     slot,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		logger:   logger.With().Str("component", "collection").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.movies = s.load(ctx)
	metrics.CollectionSize.Set(float64(len(s.movies)))

	return s
}

func (s *Store) load(ctx context.Context) []Movie {
	data, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrEmpty) {
			s.logger.Warn().Err(err).Msg("Failed to read collection snapshot, starting empty")
		}
		return []Movie{}
	}

	movies, err := Decode(data)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Collection snapshot is not parsable, starting empty")
		return []Movie{}
	}

	s.logger.Info().Int("movies", len(movies)).Msg("Loaded collection")
	return movies
}

// Add appends movie as unwatched. Adding a movie that is already present
// changes nothing and sends an info notice instead of a success notice.
// It reports whether the movie was added.
func (s *Store) Add(ctx context.Context, movie catalog.Movie) bool {
	s.mu.Lock()
	if s.indexOf(movie.ID) >= 0 {
		s.mu.Unlock()
		metrics.CollectionMutations.WithLabelValues("add", "noop").Inc()
		s.notifier.Notify(notification.SeverityInfo, msgAlreadyAdded)
		return false
	}

	entry := FromCatalog(movie)
	entry.AddedAt = s.clock.Now().UTC().Format(time.RFC3339)
	s.movies = append(s.movies, entry)
	saved := s.commitLocked(ctx, "add")
	s.mu.Unlock()

	s.logger.Info().Str("movieId", movie.ID).Str("title", movie.Title).Msg("Added movie to collection")
	s.afterCommit(saved)
	s.notifier.Notify(notification.SeveritySuccess, msgAdded)
	return true
}

// Remove deletes the movie with id if present. Removing an absent id is not
// an error. It reports whether an entry was removed.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	removed := false
	if i := s.indexOf(id); i >= 0 {
		s.movies = append(s.movies[:i:i], s.movies[i+1:]...)
		removed = true
	}
	saved := s.commitLocked(ctx, "remove")
	s.mu.Unlock()

	if removed {
		s.logger.Info().Str("movieId", id).Msg("Removed movie from collection")
	}
	s.afterCommit(saved)
	s.notifier.Notify(notification.SeveritySuccess, msgRemoved)
	return removed
}

// ToggleWatched flips the watched flag of the movie with id and returns the
// updated entry. Unknown ids are ignored.
func (s *Store) ToggleWatched(ctx context.Context, id string) (Movie, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		metrics.CollectionMutations.WithLabelValues("toggle_watched", "noop").Inc()
		return Movie{}, false
	}

	s.movies[i].Watched = !s.movies[i].Watched
	updated := s.movies[i]
	saved := s.commitLocked(ctx, "toggle_watched")
	s.mu.Unlock()

	s.logger.Debug().Str("movieId", id).Bool("watched", updated.Watched).Msg("Toggled watched")
	s.afterCommit(saved)
	return updated, true
}

// IsMember reports whether a movie with id is in the collection.
func (s *Store) IsMember(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// MemberSet returns the ids currently in the collection.
func (s *Store) MemberSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.movies))
	for _, m := range s.movies {
		ids[m.ID] = struct{}{}
	}
	return ids
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.movies[i], true
	}
	return Movie{}, false
}

// List returns the collection in insertion order.
func (s *Store) List() []Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Filter returns the movies whose watched flag equals *watched, or all
// movies when watched is nil.
func (s *Store) Filter(watched *bool) []Movie {
	if watched == nil {
		return s.List()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if m.Watched == *watched {
			out = append(out, m)
		}
	}
	return out
}

// Stats counts watched and unwatched movies.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.movies)}
	for _, m := range s.movies {
		if m.Watched {
			st.Watched++
		}
	}
	st.Unwatched = st.Total - st.Watched
	return st
}

// Len returns the number of movies in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

func (s *Store) indexOf(id string) int {
	for i := range s.movies {
		if s.movies[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []Movie {
	out := make([]Movie, len(s.movies))
	copy(out, s.movies)
	return out
}

// commitLocked writes the collection to the slot while s.mu is held, so
// snapshots reach storage in mutation order. It reports whether the write
// succeeded. A failed write leaves the in-memory state as is; the next
// successful write brings storage up to date.
func (s *Store) commitLocked(ctx context.Context, operation string) bool {
	metrics.CollectionSize.Set(float64(len(s.movies)))

	data, err := Encode(s.movies)
	if err == nil {
		err = s.slot.Save(ctx, data)
	}
	if err != nil {
		metrics.CollectionMutations.WithLabelValues(operation, "persist_failed").Inc()
		s.logger.Error().Err(err).Str("operation", operation).Msg("Failed to persist collection")
		return false
	}
	metrics.CollectionMutations.WithLabelValues(operation, "applied").Inc()

	if s.events != nil {
		if err := s.events.Broadcast(EventUpdated, s.snapshotLocked()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to broadcast collection update")
		}
	}
	return true
}

func (s *Store) afterCommit(saved bool) {
	if !saved {
		s.notifier.Notify(notification.SeverityError, msgSaveFailed)
	}
}

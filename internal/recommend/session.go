package recommend

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/metrics"
)

var (
	// ErrUnknownOption is returned when an answer names no option of the
	// current question.
	ErrUnknownOption = errors.New("unknown option for current question")
	// ErrNotAsking is returned when an answer arrives while no question is
	// being asked.
	ErrNotAsking = errors.New("quiz is not waiting for an answer")
)

// State is the quiz state.
type State string

const (
	StateAsking   State = "asking"
	StateLoading  State = "loading"
	StateResult   State = "result"
	StateNoResult State = "no_result"
)

// DefaultCloseDelay is how long Close waits before resetting.
const DefaultCloseDelay = 300 * time.Millisecond

// EventUpdated is the websocket message type carrying a session Snapshot.
const EventUpdated = "quiz:updated"

// Searcher runs the genre query.
type Searcher interface {
	SearchByText(ctx context.Context, query string) catalog.Result[[]catalog.Movie]
}

// Membership reports which movie ids the user already owns.
type Membership interface {
	MemberSet() map[string]struct{}
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	QuestionIndex int               `json:"questionIndex"`
	QuestionCount int               `json:"questionCount"`
	Question      *Question         `json:"question,omitempty"`
	Answers       map[string]string `json:"answers"`
	Query         string            `json:"query,omitempty"`
	Result        *catalog.Movie    `json:"result,omitempty"`
	InProgress    bool              `json:"inProgress"`
}

// Engine holds what every quiz session shares: the question set, the
// catalog, the user's collection, and the random source.
type Engine struct {
	questions  []Question
	searcher   Searcher
	owned      Membership
	clock      clockwork.Clock
	closeDelay time.Duration
	logger     zerolog.Logger
	onChange   func(Snapshot)

	rng   *rand.Rand
	rngMu sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used for the close delay and idle tracking.
func WithClock(c clockwork.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithCloseDelay overrides DefaultCloseDelay.
func WithCloseDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.closeDelay = d }
}

// WithSeed seeds the random source. Zero seeds from the current time.
func WithSeed(seed int64) EngineOption {
	return func(e *Engine) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // recommendation picks need no crypto strength
	}
}

// WithChangeHook calls fn with the new snapshot after every state change.
func WithChangeHook(fn func(Snapshot)) EngineOption {
	return func(e *Engine) { e.onChange = fn }
}

// NewEngine creates an engine. questions must already be validated.
func NewEngine(questions []Question, searcher Searcher, owned Membership, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		questions:  questions,
		searcher:   searcher,
		owned:      owned,
		clock:      clockwork.NewRealClock(),
		closeDelay: DefaultCloseDelay,
		logger:     logger.With().Str("component", "recommend").Logger(),
	}
	WithSeed(0)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Questions returns the question set.
func (e *Engine) Questions() []Question {
	return e.questions
}

func (e *Engine) pick(results []catalog.Movie) (catalog.Movie, bool) {
	var owned map[string]struct{}
	if e.owned != nil {
		owned = e.owned.MemberSet()
	}

	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return Select(results, owned, e.rng)
}

// Session is one run through the quiz. It starts at the first question.
type Session struct {
	id     string
	engine *Engine

	mu         sync.Mutex
	state      State
	index      int
	answers    map[string]string
	query      string
	result     *catalog.Movie
	generation uint64
	cancel     context.CancelFunc
	closeTimer clockwork.Timer
	lastActive time.Time
}

// NewSession creates a session in the asking state.
func (e *Engine) NewSession(id string) *Session {
	return &Session{
		id:         id,
		engine:     e,
		state:      StateAsking,
		answers:    make(map[string]string),
		lastActive: e.clock.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Answer records optionID for the current question. Answering the last
// question starts the catalog query in the background and moves the session
// to StateLoading; the query's outcome moves it to StateResult or
// StateNoResult. ctx only contributes values to the query; its cancellation
// does not abort it.
func (s *Session) Answer(ctx context.Context, optionID string) (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateAsking {
		s.mu.Unlock()
		return Snapshot{}, ErrNotAsking
	}

	question := s.engine.questions[s.index]
	if _, ok := question.Option(optionID); !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrUnknownOption
	}

	s.answers[question.ID] = optionID
	s.lastActive = s.engine.clock.Now()

	if s.index < len(s.engine.questions)-1 {
		s.index++
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.engine.notify(snap)
		return snap, nil
	}

	s.state = StateLoading
	s.query = BuildQuery(AggregateGenres(s.engine.questions, s.answers))
	queryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	gen := s.generation
	query := s.query
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.engine.notify(snap)
	go s.recommend(queryCtx, gen, query)
	return snap, nil
}

func (s *Session) recommend(ctx context.Context, gen uint64, query string) {
	logger := s.engine.logger.With().Str("session", s.id).Str("query", query).Logger()

	res := s.engine.searcher.SearchByText(ctx, query)

	var (
		movie catalog.Movie
		found bool
	)
	if res.OK() {
		movie, found = s.engine.pick(res.Value)
	} else {
		logger.Warn().Err(res.Err).Msg("Recommendation query failed")
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		logger.Debug().Msg("Discarding recommendation for a reset session")
		return
	}
	s.cancel = nil
	if found {
		s.result = &movie
		s.state = StateResult
	} else {
		s.state = StateNoResult
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	switch {
	case found:
		metrics.QuizRecommendations.WithLabelValues("result").Inc()
		logger.Info().Str("movieId", movie.ID).Str("title", movie.Title).Msg("Recommended movie")
	case res.OK():
		metrics.QuizRecommendations.WithLabelValues("empty").Inc()
		logger.Info().Msg("No movie matched the quiz answers")
	default:
		metrics.QuizRecommendations.WithLabelValues("failed").Inc()
	}
	s.engine.notify(snap)
}

// Reset returns the session to the first question, discarding answers, any
// result, any pending close, and the outcome of an in-flight query.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.engine.notify(snap)
	return snap
}

// Close schedules a Reset after the engine's close delay. The session keeps
// its state until then. A second Close restarts the delay.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeTimer != nil {
		s.closeTimer.Stop()
	}

	// A fired callback may still be waiting on mu when a reset or a later
	// Close supersedes it, so it only resets the run it was scheduled for.
	gen := s.generation
	var timer clockwork.Timer
	timer = s.engine.clock.AfterFunc(s.engine.closeDelay, func() {
		s.mu.Lock()
		if s.generation != gen || s.closeTimer != timer {
			s.mu.Unlock()
			return
		}
		s.resetLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.engine.notify(snap)
	})
	s.closeTimer = timer
}

// LastActive returns when the session was last created, answered or reset.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// discard stops any pending work so the session can be dropped.
func (s *Session) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
}

func (s *Session) resetLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	s.state = StateAsking
	s.index = 0
	s.answers = make(map[string]string)
	s.query = ""
	s.result = nil
	s.lastActive = s.engine.clock.Now()
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		QuestionIndex: s.index,
		QuestionCount: len(s.engine.questions),
		Answers:       answers,
		Query:         s.query,
		InProgress:    s.state == StateLoading,
	}
	if s.state == StateAsking {
		q := s.engine.questions[s.index]
		snap.Question = &q
	}
	if s.result != nil {
		m := *s.result
		snap.Result = &m
	}
	return snap
}

func (e *Engine) notify(snap Snapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}

package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/domain"
)

const (
	// DefaultDuration is fifteen minutes of one-second ticks.
	DefaultDuration     = 15 * 60
	DefaultTickInterval = time.Second

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	Count(ctx context.Context) (int, error)
}

// CatalogRepository loads the country catalog (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// ScoreRepository persists finished-session scores and serves rankings ordered
// by correct answers desc, then time asc.
type ScoreRepository interface {
	SaveScore(ctx context.Context, score domain.Score) (domain.Score, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	BestScore(ctx context.Context, userID string) (domain.Score, error)
}

// Option tunes a QuizService.
type Option func(*QuizService)

// WithDuration sets the countdown length in ticks.
func WithDuration(ticks int) Option {
	return func(s *QuizService) { s.duration = ticks }
}

// WithTickInterval sets the wall-clock length of one tick.
func WithTickInterval(d time.Duration) Option {
	return func(s *QuizService) { s.interval = d }
}

// WithClock overrides time.Now for sessions and score timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions SessionRepository
	catalogs CatalogRepository
	scores   ScoreRepository
	duration int
	interval time.Duration
	now      func() time.Time

	saves sync.WaitGroup
}

func NewQuizService(sessions SessionRepository, catalogs CatalogRepository, scores ScoreRepository, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: sessions,
		catalogs: catalogs,
		scores:   scores,
		duration: DefaultDuration,
		interval: DefaultTickInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a not-started session for the given (possibly anonymous) identity.
func (s *QuizService) Open(ctx context.Context, identity domain.Identity) (domain.SessionSnapshot, error) {
	cat, err := s.catalogs.GetCatalog(ctx)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	session := NewSessionWithClock(uuid.NewString(), cat, identity, s.duration, s.now)
	s.sessions.Put(session)
	log.Debug().Str("session", session.ID()).Bool("anonymous", identity.Anonymous()).Msg("session opened")
	return session.Snapshot(), nil
}

// Start moves a session to running and starts its countdown. The ticker lives
// until the session finishes, is closed or ctx is done.
func (s *QuizService) Start(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	snap, err := session.start()
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	session.attachTicker(StartTicker(ctx, s.interval, func() bool {
		return s.Tick(sessionID)
	}))
	return snap, nil
}

// Tick advances a session's countdown by one tick and reports whether ticking
// should continue. Expiry finishes the session exactly once.
func (s *QuizService) Tick(sessionID string) bool {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false
	}
	result, more := session.tick()
	if result != nil {
		s.recordFinish(session, *result)
	}
	return more
}

// Submit resolves free-text input against the session catalog and records it.
func (s *QuizService) Submit(_ context.Context, sessionID, input string) (domain.SubmitResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SubmitResult{}, domain.ErrSessionNotFound
	}
	country, resolved := session.Catalog().Resolve(input)
	res, finished, err := session.submit(input, country, resolved)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if finished != nil {
		s.recordFinish(session, *finished)
	}
	return res, nil
}

// Finish ends a running session on user request. Finishing an already
// finished session returns the stored result without saving again.
func (s *QuizService) Finish(_ context.Context, sessionID string) (domain.SessionResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	result, transitioned, err := session.finish(domain.FinishExplicit)
	if err != nil {
		return domain.SessionResult{}, err
	}
	if transitioned {
		s.recordFinish(session, result)
	}
	return result, nil
}

// RequestQuit is the first step of quitting; the session keeps running.
func (s *QuizService) RequestQuit(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.requestQuit()
}

// CancelQuit withdraws a pending quit request.
func (s *QuizService) CancelQuit(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.cancelQuit()
}

// ConfirmQuit discards the session and its progress.
func (s *QuizService) ConfirmQuit(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.confirmQuit(); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	log.Debug().Str("session", sessionID).Msg("session quit")
	return nil
}

// Restart discards the session and opens a fresh one for the same identity.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	s.Close(ctx, sessionID)
	return s.Open(ctx, session.Identity())
}

// Close drops a session when its view goes away, stopping its ticker.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.close()
	s.sessions.Delete(sessionID)
}

// Subscribe returns a channel that receives snapshots of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Snapshot returns the current state of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Session returns the live session, for projections that need its catalog.
func (s *QuizService) Session(_ context.Context, sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// LiveSessions counts the sessions currently open.
func (s *QuizService) LiveSessions(ctx context.Context) (int, error) {
	return s.sessions.Count(ctx)
}

// Countries returns the current catalog in catalog order.
func (s *QuizService) Countries(ctx context.Context) ([]domain.Country, error) {
	cat, err := s.catalogs.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Countries(), nil
}

// Leaderboard returns the top scores; limit is clamped to [1, MaxLeaderboardLimit].
func (s *QuizService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	return s.scores.Leaderboard(ctx, limit)
}

// BestScore returns a user's best score.
func (s *QuizService) BestScore(ctx context.Context, userID string) (domain.Score, error) {
	if userID == "" {
		return domain.Score{}, domain.ErrScoreNotFound
	}
	return s.scores.BestScore(ctx, userID)
}

// Drain waits for in-flight score saves or until ctx is done.
func (s *QuizService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.saves.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordFinish persists the score of an identified session in the background.
// A failed save is logged and never changes the session outcome.
func (s *QuizService) recordFinish(session *Session, result domain.SessionResult) {
	logger := log.With().
		Str("session", session.ID()).
		Str("reason", string(result.Reason)).
		Int("correct", result.CorrectAnswers).
		Int("elapsed", result.ElapsedSeconds).
		Logger()

	identity := session.Identity()
	if identity.Anonymous() {
		logger.Info().Msg("anonymous session finished; score not persisted")
		return
	}

	score := domain.Score{
		ID:             uuid.NewString(),
		UserID:         identity.UserID,
		DisplayName:    identity.DisplayName,
		CorrectAnswers: result.CorrectAnswers,
		Total:          result.Total,
		TimeSeconds:    result.ElapsedSeconds,
		CreatedAt:      s.now().UTC(),
	}

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		saved, err := s.scores.SaveScore(context.Background(), score)
		if err != nil {
			logger.Error().Err(err).Str("user", score.UserID).Msg("failed to save score")
			return
		}
		logger.Info().Str("user", saved.UserID).Str("score", saved.ID).Msg("score saved")
	}()
}

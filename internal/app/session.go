package app

import (
	"math"
	"sync"
	"time"

	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/projection"
)

// Session is one timed attempt at the quiz: not_started -> running -> finished.
// All mutations, whether from answers or timer ticks, are serialized by mu.
type Session struct {
	id       string
	catalog  *catalog.Catalog
	identity domain.Identity
	now      func() time.Time

	mu          sync.RWMutex
	status      domain.SessionStatus
	startedAt   time.Time
	finishedAt  time.Time
	countdown   *Countdown
	discovered  map[string]struct{}
	order       []string
	quitPending bool
	result      *domain.SessionResult
	ticker      *TickHandle
	closed      bool
	subscribers map[chan domain.SessionSnapshot]struct{}
}

// NewSession creates a session in not_started with a countdown of duration ticks.
func NewSession(id string, cat *catalog.Catalog, identity domain.Identity, duration int) *Session {
	return NewSessionWithClock(id, cat, identity, duration, time.Now)
}

// NewSessionWithClock allows deterministic elapsed times in tests.
func NewSessionWithClock(id string, cat *catalog.Catalog, identity domain.Identity, duration int, now func() time.Time) *Session {
	return &Session{
		id:          id,
		catalog:     cat,
		identity:    identity,
		now:         now,
		status:      domain.StatusNotStarted,
		countdown:   NewCountdown(duration),
		discovered:  make(map[string]struct{}, cat.Size()),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Identity() domain.Identity { return s.identity }

// Catalog is the catalog the session was opened with.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Result returns the outcome once the session finished.
func (s *Session) Result() (domain.SessionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.SessionResult{}, false
	}
	return *s.result, true
}

// Coloring derives the three-way map paint for the current state.
func (s *Session) Coloring() map[string]domain.Paint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return projection.Coloring(s.catalog.IDs(), s.discovered, s.status == domain.StatusFinished)
}

func (s *Session) start() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusNotStarted {
		return domain.SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.status = domain.StatusRunning
	s.startedAt = s.now()
	s.countdown.Resume()
	return s.broadcastLocked(), nil
}

// attachTicker binds the ticking goroutine to the session lifetime. A session
// that is no longer running stops the handle right away.
func (s *Session) attachTicker(h *TickHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning || s.closed {
		h.Stop()
		return
	}
	s.ticker.Stop()
	s.ticker = h
}

// submit records a resolved answer. The returned result is non-nil only when
// this answer completed the catalog and finished the session.
func (s *Session) submit(input string, country domain.Country, resolved bool) (domain.SubmitResult, *domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusRunning {
		return domain.SubmitResult{}, nil, domain.ErrInvalidTransition
	}

	res := domain.SubmitResult{Input: input, Total: s.catalog.Size()}
	switch {
	case !resolved:
		res.Outcome = domain.OutcomeNotFound
	case s.isDiscoveredLocked(country.ID):
		res.Outcome = domain.OutcomeDuplicate
		res.Country = &country
	default:
		res.Outcome = domain.OutcomeAccepted
		res.Country = &country
		s.discovered[country.ID] = struct{}{}
		s.order = append(s.order, country.ID)
	}
	res.Found = len(s.discovered)

	var finished *domain.SessionResult
	if res.Outcome == domain.OutcomeAccepted && len(s.discovered) == s.catalog.Size() {
		finished = s.finishLocked(domain.FinishCompleted)
		res.Finished = true
		return res, finished, nil
	}
	if res.Outcome == domain.OutcomeAccepted {
		s.broadcastLocked()
	}
	return res, nil, nil
}

// finish ends a running session. Calling it on a finished session is a no-op
// that returns the existing result with transitioned=false.
func (s *Session) finish(reason domain.FinishReason) (domain.SessionResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return domain.SessionResult{}, false, domain.ErrInvalidTransition
	case s.status == domain.StatusFinished:
		return *s.result, false, nil
	case s.status != domain.StatusRunning:
		return domain.SessionResult{}, false, domain.ErrInvalidTransition
	}
	result := s.finishLocked(reason)
	return *result, true, nil
}

// tick advances the countdown by one. It reports whether the ticker should keep
// running and, on expiry, the result of the time-up finish.
func (s *Session) tick() (*domain.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusRunning {
		return nil, false
	}
	if !s.countdown.Tick() {
		s.broadcastLocked()
		return nil, true
	}
	return s.finishLocked(domain.FinishTimeUp), false
}

// finishLocked must only be called on a running session.
func (s *Session) finishLocked(reason domain.FinishReason) *domain.SessionResult {
	s.status = domain.StatusFinished
	s.finishedAt = s.now()
	s.quitPending = false
	s.countdown.Pause()
	s.ticker.Stop()

	countries := s.catalog.Countries()
	found := len(s.discovered)
	pct := projection.Percentage(found, len(countries))
	s.result = &domain.SessionResult{
		SessionID:      s.id,
		Reason:         reason,
		CorrectAnswers: found,
		Total:          len(countries),
		Percentage:     pct,
		ElapsedSeconds: int(math.Round(s.finishedAt.Sub(s.startedAt).Seconds())),
		Rating:         projection.Rating(pct),
		Missed:         projection.Missed(countries, s.discovered),
		Coloring:       projection.Coloring(s.catalog.IDs(), s.discovered, true),
	}
	s.broadcastLocked()
	return s.result
}

func (s *Session) requestQuit() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusRunning {
		return domain.SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.quitPending = true
	return s.broadcastLocked(), nil
}

func (s *Session) cancelQuit() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.quitPending {
		return domain.SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.quitPending = false
	return s.broadcastLocked(), nil
}

// confirmQuit discards a running session after a pending quit request.
func (s *Session) confirmQuit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusRunning || !s.quitPending {
		return domain.ErrInvalidTransition
	}
	s.closeLocked()
	return nil
}

// close stops the ticker and releases subscribers. Progress is not kept.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.countdown.Pause()
	s.ticker.Stop()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) isDiscoveredLocked(id string) bool {
	_, ok := s.discovered[id]
	return ok
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// buffered, so this never blocks while holding mu
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop its oldest pending snapshot so the newest one fits.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	countries := s.catalog.Countries()
	found := len(s.discovered)
	snap := domain.SessionSnapshot{
		SessionID:   s.id,
		Status:      s.status,
		Duration:    s.countdown.Duration(),
		Remaining:   s.countdown.Remaining(),
		Discovered:  append([]string{}, s.order...),
		Found:       found,
		Total:       len(countries),
		Percentage:  projection.Percentage(found, len(countries)),
		Continents:  projection.ContinentProgress(countries, s.discovered),
		QuitPending: s.quitPending,

		DiscoveredByContinent: projection.Discovered(countries, s.discovered),
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

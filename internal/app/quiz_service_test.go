package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/infra/memory"
)

func TestSubmitAndFinishSavesScore(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{}
	service := newTestService(scores, app.WithTickInterval(time.Hour))

	snap, err := service.Open(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if snap.Status != domain.StatusNotStarted || snap.Total != 3 {
		t.Fatalf("unexpected opening snapshot %+v", snap)
	}
	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := service.Submit(ctx, snap.SessionID, "brasil")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Outcome != domain.OutcomeAccepted || res.Country.ID != "BR" {
		t.Fatalf("expected Brazil accepted, got %+v", res)
	}

	result, err := service.Finish(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Reason != domain.FinishExplicit || result.CorrectAnswers != 1 || result.Percentage != 33 {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := service.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	saved := scores.all()
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved score, got %d", len(saved))
	}
	if saved[0].UserID != "u1" || saved[0].DisplayName != "Alice" || saved[0].CorrectAnswers != 1 || saved[0].Total != 3 {
		t.Fatalf("unexpected saved score %+v", saved[0])
	}
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{}
	service := newTestService(scores, app.WithTickInterval(time.Hour))

	snap, err := service.Open(ctx, domain.Identity{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Finish(ctx, snap.SessionID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	_ = service.Drain(ctx)
	if n := len(scores.all()); n != 0 {
		t.Fatalf("expected no saved scores, got %d", n)
	}
}

func TestExpiryRacingFinishSavesOnce(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{}
	service := newTestService(scores, app.WithDuration(1), app.WithTickInterval(time.Hour))

	for i := 0; i < 20; i++ {
		snap, err := service.Open(ctx, domain.Identity{UserID: "u1"})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := service.Start(ctx, snap.SessionID); err != nil {
			t.Fatalf("start: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			service.Tick(snap.SessionID)
		}()
		go func() {
			defer wg.Done()
			if _, err := service.Finish(ctx, snap.SessionID); err != nil {
				t.Errorf("finish: %v", err)
			}
		}()
		wg.Wait()
	}
	if err := service.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n := len(scores.all()); n != 20 {
		t.Fatalf("expected one save per session (20), got %d", n)
	}
}

func TestTickerExpiresSession(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{}
	service := newTestService(scores, app.WithDuration(5), app.WithTickInterval(5*time.Millisecond))

	snap, err := service.Open(ctx, domain.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	updates, cancel, err := service.Subscribe(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case update := <-updates:
			if update.Status != domain.StatusFinished {
				continue
			}
			if update.Result == nil || update.Result.Reason != domain.FinishTimeUp {
				t.Fatalf("expected time_up result, got %+v", update.Result)
			}
			if update.Found != 0 || update.Percentage != 0 || update.Remaining != 0 {
				t.Fatalf("unexpected final snapshot %+v", update)
			}
			if err := service.Drain(ctx); err != nil {
				t.Fatalf("drain: %v", err)
			}
			if saved := scores.all(); len(saved) != 1 || saved[0].CorrectAnswers != 0 {
				t.Fatalf("expected one zero score, got %+v", saved)
			}
			return
		case <-timeout:
			t.Fatalf("session did not expire")
		}
	}
}

func TestPersistenceFailureKeepsOutcome(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{err: errors.New("backend down")}
	service := newTestService(scores, app.WithTickInterval(time.Hour))

	snap, err := service.Open(ctx, domain.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Finish(ctx, snap.SessionID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	_ = service.Drain(ctx)

	got, err := service.Snapshot(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got.Status != domain.StatusFinished {
		t.Fatalf("expected finished despite failed save, got %s", got.Status)
	}
}

func TestConfirmQuitDiscardsSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&recordingScores{}, app.WithTickInterval(time.Hour))

	snap, err := service.Open(ctx, domain.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.ConfirmQuit(ctx, snap.SessionID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected confirmation to require a request, got %v", err)
	}
	if _, err := service.RequestQuit(ctx, snap.SessionID); err != nil {
		t.Fatalf("request quit: %v", err)
	}
	if err := service.ConfirmQuit(ctx, snap.SessionID); err != nil {
		t.Fatalf("confirm quit: %v", err)
	}
	if _, err := service.Snapshot(ctx, snap.SessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestRestartOpensFreshSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&recordingScores{}, app.WithTickInterval(time.Hour))

	snap, err := service.Open(ctx, domain.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := service.Start(ctx, snap.SessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Submit(ctx, snap.SessionID, "france"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	fresh, err := service.Restart(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if fresh.SessionID == snap.SessionID || fresh.Status != domain.StatusNotStarted || fresh.Found != 0 {
		t.Fatalf("unexpected restarted snapshot %+v", fresh)
	}
	if _, err := service.Snapshot(ctx, snap.SessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected old session gone, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&recordingScores{})

	if _, err := service.Submit(ctx, "missing", "brazil"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := service.Start(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLeaderboardLimitIsClamped(t *testing.T) {
	ctx := context.Background()
	scores := &recordingScores{}
	service := newTestService(scores)

	for limit, want := range map[int]int{0: 10, -3: 10, 5: 5, 1000: 100} {
		if _, err := service.Leaderboard(ctx, limit); err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		if scores.lastLimit != want {
			t.Fatalf("limit %d: expected %d, got %d", limit, want, scores.lastLimit)
		}
	}
}

func newTestService(scores app.ScoreRepository, opts ...app.Option) *app.QuizService {
	catalogs := memory.NewCatalogRepository(catalog.NewStaticLoader([]domain.Country{
		{ID: "BR", Name: "Brazil", Continent: domain.SouthAmerica, Aliases: []string{"Brasil"}},
		{ID: "FR", Name: "France", Continent: domain.Europe, Aliases: []string{"França"}},
		{ID: "JP", Name: "Japan", Continent: domain.Asia, Aliases: []string{"Japão"}},
	}), 5*time.Minute)
	return app.NewQuizService(memory.NewSessionStore(), catalogs, scores, opts...)
}

type recordingScores struct {
	mu        sync.Mutex
	saved     []domain.Score
	err       error
	lastLimit int
}

func (r *recordingScores) SaveScore(_ context.Context, score domain.Score) (domain.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Score{}, r.err
	}
	r.saved = append(r.saved, score)
	return score, nil
}

func (r *recordingScores) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	return nil, nil
}

func (r *recordingScores) BestScore(context.Context, string) (domain.Score, error) {
	return domain.Score{}, domain.ErrScoreNotFound
}

func (r *recordingScores) all() []domain.Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Score(nil), r.saved...)
}

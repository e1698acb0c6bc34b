package memory

import (
	"context"
	"sort"
	"sync"

	"world-quiz-service/internal/domain"
)

// ScoreRepository keeps scores in process; used when no database is configured.
type ScoreRepository struct {
	mu     sync.RWMutex
	scores []domain.Score
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{}
}

func (r *ScoreRepository) SaveScore(_ context.Context, score domain.Score) (domain.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, score)
	return score, nil
}

func (r *ScoreRepository) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	r.mu.RLock()
	ranked := append([]domain.Score(nil), r.scores...)
	r.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Better(ranked[j])
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(ranked))
	for i, score := range ranked {
		entries[i] = domain.LeaderboardEntry{Rank: i + 1, Score: score}
	}
	return entries, nil
}

func (r *ScoreRepository) BestScore(_ context.Context, userID string) (domain.Score, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best  domain.Score
		found bool
	)
	for _, score := range r.scores {
		if score.UserID != userID {
			continue
		}
		if !found || score.Better(best) {
			best, found = score, true
		}
	}
	if !found {
		return domain.Score{}, domain.ErrScoreNotFound
	}
	return best, nil
}

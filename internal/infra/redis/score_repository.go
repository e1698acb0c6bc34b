package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"world-quiz-service/internal/domain"
)

// maxRankedSeconds caps the time component of the sort key.
const maxRankedSeconds = 999_999

// ScoreRepository keeps scores in Redis sorted sets.
// Details:      SET  quiz:score:{id} {json}
// Global rank:  ZADD quiz:leaderboard {rank} {id}
// Per user:     ZADD quiz:user:{userID}:scores {rank} {id}
type ScoreRepository struct {
	client *redis.Client
}

func NewScoreRepository(client *redis.Client) *ScoreRepository {
	return &ScoreRepository{client: client}
}

func (r *ScoreRepository) SaveScore(ctx context.Context, score domain.Score) (domain.Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	payload, err := json.Marshal(score)
	if err != nil {
		return domain.Score{}, fmt.Errorf("encode score: %w", err)
	}
	member := redis.Z{Score: rankOf(score), Member: score.ID}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, scoreKey(score.ID), payload, 0)
		pipe.ZAdd(ctx, leaderboardKey, member)
		pipe.ZAdd(ctx, userScoresKey(score.UserID), member)
		return nil
	})
	if err != nil {
		return domain.Score{}, fmt.Errorf("save score: %w", err)
	}
	return score, nil
}

func (r *ScoreRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	ids, err := r.client.ZRevRange(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	scores, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, len(scores))
	for i, score := range scores {
		entries[i] = domain.LeaderboardEntry{Rank: i + 1, Score: score}
	}
	return entries, nil
}

func (r *ScoreRepository) BestScore(ctx context.Context, userID string) (domain.Score, error) {
	ids, err := r.client.ZRevRange(ctx, userScoresKey(userID), 0, 0).Result()
	if err != nil {
		return domain.Score{}, fmt.Errorf("read best score: %w", err)
	}
	scores, err := r.load(ctx, ids)
	if err != nil {
		return domain.Score{}, err
	}
	if len(scores) == 0 {
		return domain.Score{}, domain.ErrScoreNotFound
	}
	return scores[0], nil
}

// load fetches score details in rank order, skipping ids whose details vanished.
func (r *ScoreRepository) load(ctx context.Context, ids []string) ([]domain.Score, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = scoreKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	scores := make([]domain.Score, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var score domain.Score
		if err := json.Unmarshal([]byte(raw), &score); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// rankOf packs correct answers (desc) and time (asc) into one sorted-set score.
func rankOf(score domain.Score) float64 {
	seconds := score.TimeSeconds
	if seconds > maxRankedSeconds {
		seconds = maxRankedSeconds
	}
	if seconds < 0 {
		seconds = 0
	}
	return float64(score.CorrectAnswers)*(maxRankedSeconds+1) + float64(maxRankedSeconds-seconds)
}

const leaderboardKey = "quiz:leaderboard"

func scoreKey(id string) string {
	return "quiz:score:" + id
}

func userScoresKey(userID string) string {
	return "quiz:user:" + userID + ":scores"
}

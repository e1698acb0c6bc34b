package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"world-quiz-service/internal/domain"
)

const scoreColumns = `id, user_id, display_name, correct_answers, total, time_seconds, created_at`

// ScoreRepository stores scores in the scores table.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

func (r *ScoreRepository) SaveScore(ctx context.Context, score domain.Score) (domain.Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scores (`+scoreColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		score.ID, score.UserID, score.DisplayName, score.CorrectAnswers, score.Total, score.TimeSeconds, score.CreatedAt,
	)
	if err != nil {
		return domain.Score{}, fmt.Errorf("insert score: %w", err)
	}
	return score, nil
}

func (r *ScoreRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scoreColumns+` FROM scores
		 ORDER BY correct_answers DESC, time_seconds ASC, created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.LeaderboardEntry{Rank: len(entries) + 1, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}

func (r *ScoreRepository) BestScore(ctx context.Context, userID string) (domain.Score, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM scores
		 WHERE user_id = $1
		 ORDER BY correct_answers DESC, time_seconds ASC, created_at ASC
		 LIMIT 1`, userID)
	score, err := scanScore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Score{}, domain.ErrScoreNotFound
	}
	return score, err
}

func scanScore(row pgx.Row) (domain.Score, error) {
	var s domain.Score
	err := row.Scan(&s.ID, &s.UserID, &s.DisplayName, &s.CorrectAnswers, &s.Total, &s.TimeSeconds, &s.CreatedAt)
	if err != nil {
		return domain.Score{}, fmt.Errorf("scan score: %w", err)
	}
	return s, nil
}

// Package sqlite persists scores to a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"world-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS scores (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    display_name     TEXT NOT NULL DEFAULT '',
    correct_answers  INTEGER NOT NULL,
    total            INTEGER NOT NULL,
    time_seconds     INTEGER NOT NULL,
    created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scores_ranking_idx ON scores (correct_answers DESC, time_seconds ASC, created_at ASC);
CREATE INDEX IF NOT EXISTS scores_user_idx ON scores (user_id);
`

const scoreColumns = `id, user_id, display_name, correct_answers, total, time_seconds, created_at`

const ranking = `ORDER BY correct_answers DESC, time_seconds ASC, created_at ASC`

// ScoreRepository stores scores in a single SQLite file.
type ScoreRepository struct {
	db *sql.DB
}

// Open creates the file (and its directory) if missing and applies the schema.
func Open(path string) (*ScoreRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &ScoreRepository{db: db}, nil
}

func (r *ScoreRepository) Close() error {
	return r.db.Close()
}

func (r *ScoreRepository) SaveScore(ctx context.Context, score domain.Score) (domain.Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scores (`+scoreColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		score.ID, score.UserID, score.DisplayName, score.CorrectAnswers, score.Total, score.TimeSeconds, score.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return domain.Score{}, fmt.Errorf("insert score: %w", err)
	}
	return score, nil
}

func (r *ScoreRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scoreColumns+` FROM scores `+ranking+` LIMIT ?`, limit)
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
	return entries, rows.Err()
}

func (r *ScoreRepository) BestScore(ctx context.Context, userID string) (domain.Score, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM scores WHERE user_id = ? `+ranking+` LIMIT 1`, userID)
	score, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Score{}, domain.ErrScoreNotFound
	}
	return score, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner) (domain.Score, error) {
	var (
		s         domain.Score
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.DisplayName, &s.CorrectAnswers, &s.Total, &s.TimeSeconds, &createdAt); err != nil {
		return domain.Score{}, fmt.Errorf("scan score: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return s, nil
}

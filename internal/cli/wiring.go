package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/config"
	"world-quiz-service/internal/infra/memory"
	"world-quiz-service/internal/infra/postgres"
	redisinfra "world-quiz-service/internal/infra/redis"
	"world-quiz-service/internal/infra/sqlite"
)

// backends holds the connections opened for a command; close releases them.
type backends struct {
	redis   *redis.Client
	pool    *pgxpool.Pool
	sqlite  *sqlite.ScoreRepository
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		b.closers = append(b.closers, pool.Close)
	} else if cfg.SQLite.Path != "" {
		repo, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.sqlite = repo
		b.closers = append(b.closers, func() { _ = repo.Close() })
	}
	return b, nil
}

// catalogLoader picks the catalog source: Postgres, then a YAML file, then the embedded table.
func (b *backends) catalogLoader(cfg config.Config) catalog.Loader {
	switch {
	case b.pool != nil:
		return postgres.NewCatalogLoader(b.pool)
	case cfg.Catalog.Path != "":
		return catalog.FileLoader{Path: cfg.Catalog.Path}
	default:
		return catalog.EmbeddedLoader{}
	}
}

func (b *backends) catalogRepository(cfg config.Config) app.CatalogRepository {
	loader := b.catalogLoader(cfg)
	ttl := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisinfra.NewCatalogRepository(b.redis, loader, ttl)
	}
	return memory.NewCatalogRepository(loader, ttl)
}

func (b *backends) sessionRepository(cfg config.Config) app.SessionRepository {
	if b.redis != nil {
		return redisinfra.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	}
	return memory.NewSessionStore()
}

// scoreRepository prefers Postgres, then SQLite, then Redis, then process memory.
func (b *backends) scoreRepository() app.ScoreRepository {
	switch {
	case b.pool != nil:
		return postgres.NewScoreRepository(b.pool)
	case b.sqlite != nil:
		return b.sqlite
	case b.redis != nil:
		return redisinfra.NewScoreRepository(b.redis)
	default:
		log.Warn().Msg("no score backend configured; scores kept in memory")
		return memory.NewScoreRepository()
	}
}

func (b *backends) quizService(cfg config.Config) *app.QuizService {
	interval, ticks := cfg.QuizTiming()
	return app.NewQuizService(
		b.sessionRepository(cfg),
		b.catalogRepository(cfg),
		b.scoreRepository(),
		app.WithDuration(ticks),
		app.WithTickInterval(interval),
	)
}

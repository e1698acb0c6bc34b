package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/infra/postgres"
	pgmigrations "world-quiz-service/internal/infra/postgres/migrations"
	infraredis "world-quiz-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalogs := infraredis.NewCatalogRepository(redisClient, postgres.NewCatalogLoader(pool), 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	scores := postgres.NewScoreRepository(pool)
	service := app.NewQuizService(sessionStore, catalogs, scores, app.WithTickInterval(time.Hour))

	countries, err := service.Countries(ctx)
	if err != nil {
		t.Fatalf("countries: %v", err)
	}
	if len(countries) != 196 {
		t.Fatalf("expected 196 countries from postgres, got %d", len(countries))
	}

	play := func(who domain.Identity, answers ...string) domain.SessionResult {
		t.Helper()
		snap, err := service.Open(ctx, who)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := service.Start(ctx, snap.SessionID); err != nil {
			t.Fatalf("start: %v", err)
		}
		for _, answer := range answers {
			res, err := service.Submit(ctx, snap.SessionID, answer)
			if err != nil {
				t.Fatalf("submit %q: %v", answer, err)
			}
			if res.Outcome != domain.OutcomeAccepted {
				t.Fatalf("expected %q accepted, got %s", answer, res.Outcome)
			}
		}
		result, err := service.Finish(ctx, snap.SessionID)
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
		return result
	}

	alice := play(domain.Identity{UserID: "u1", DisplayName: "Alice"}, "brasil", "Japão", "Côte d'Ivoire")
	if alice.CorrectAnswers != 3 || alice.Total != 196 || alice.Coloring["BR"] != domain.PaintFound || alice.Coloring["FR"] != domain.PaintMissed {
		t.Fatalf("unexpected result %+v", alice)
	}
	play(domain.Identity{UserID: "u2", DisplayName: "Bob"}, "france", "germany", "italy", "spain")
	play(domain.Identity{}, "portugal", "peru", "chile", "canada", "mexico")

	if err := service.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	board, err := service.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "u2" || board[1].UserID != "u1" {
		t.Fatalf("expected bob then alice (anonymous not saved), got %+v", board)
	}

	best, err := service.BestScore(ctx, "u1")
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best.CorrectAnswers != 3 || best.DisplayName != "Alice" {
		t.Fatalf("unexpected best %+v", best)
	}
	if _, err := service.BestScore(ctx, "nobody"); !errors.Is(err, domain.ErrScoreNotFound) {
		t.Fatalf("expected ErrScoreNotFound, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	countries, err := catalog.EmbeddedLoader{}.LoadCountries(ctx)
	if err != nil {
		t.Fatalf("load embedded catalog: %v", err)
	}
	seeded, err := postgres.SeedCountriesIfEmpty(ctx, db, countries)
	if err != nil || !seeded {
		t.Fatalf("expected empty table to be seeded, got %v (%v)", seeded, err)
	}
	seeded, err = postgres.SeedCountriesIfEmpty(ctx, db, countries[:1])
	if err != nil || seeded {
		t.Fatalf("expected populated table to be left alone, got %v (%v)", seeded, err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

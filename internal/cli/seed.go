package cli

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/config"
	"world-quiz-service/internal/infra/postgres"
	redisinfra "world-quiz-service/internal/infra/redis"
)

// NewSeedCmd loads the catalog (catalog.path or the embedded table) into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the countries table from the catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	if _, err := seedCatalog(ctx, cfg, false); err != nil {
		return err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		if err := redisinfra.NewCatalogRepository(client, nil, 0).Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("could not drop cached catalog; servers pick up the new one after the cache ttl")
		}
	}
	return nil
}

// seedCatalog writes catalog.path (or the embedded table) into Postgres. With
// onlyIfEmpty an existing catalog is kept.
func seedCatalog(ctx context.Context, cfg config.Config, onlyIfEmpty bool) (bool, error) {
	var loader catalog.Loader = catalog.EmbeddedLoader{}
	if cfg.Catalog.Path != "" {
		loader = catalog.FileLoader{Path: cfg.Catalog.Path}
	}
	countries, err := loader.LoadCountries(ctx)
	if err != nil {
		return false, err
	}
	// validate before touching the table
	if _, err := catalog.New(countries); err != nil {
		return false, err
	}

	db, err := openBunDB(cfg)
	if err != nil {
		return false, err
	}
	defer db.Close()

	seeded := true
	if onlyIfEmpty {
		seeded, err = postgres.SeedCountriesIfEmpty(ctx, db, countries)
	} else {
		err = postgres.SeedCountries(ctx, db, countries)
	}
	if err != nil {
		return false, err
	}
	if seeded {
		log.Info().Int("countries", len(countries)).Msg("catalog seeded")
	}
	return seeded, nil
}

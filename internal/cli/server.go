package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/identity"
	transport "world-quiz-service/internal/transport/http"
	"world-quiz-service/internal/worldmap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		// a fresh database gets the bundled catalog
		if _, err := seedCatalog(ctx, cfg, true); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	service := b.quizService(cfg)

	// Fail fast on a broken catalog rather than on the first session.
	countries, err := service.Countries(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("countries", len(countries)).Msg("catalog loaded")

	var asset *worldmap.Asset
	if cfg.Map.Path != "" {
		asset, err = loadMap(ctx, service, cfg.Map.Path)
		if err != nil {
			return err
		}
	}

	verifier := identity.NewVerifier(cfg.Auth.JWTSecret)
	if !verifier.Enabled() {
		log.Warn().Msg("auth.jwt_secret not set; every session is anonymous and scores are not saved")
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, verifier, asset),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if drainErr := service.Drain(shutdownCtx); drainErr != nil {
		log.Warn().Err(drainErr).Msg("score saves still in flight at shutdown")
	}
	return err
}

// loadMap reads the SVG and logs any catalog ids it cannot tint.
func loadMap(ctx context.Context, service *app.QuizService, path string) (*worldmap.Asset, error) {
	asset, err := worldmap.LoadFile(path)
	if err != nil {
		return nil, err
	}
	countries, err := service.Countries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(countries))
	for i, c := range countries {
		ids[i] = c.ID
	}
	report := asset.Validate(ids)
	if !report.OK() {
		log.Warn().
			Strs("missing", report.Missing).
			Strs("unknown", report.Unknown).
			Msg("map asset does not cover the catalog; missing countries will never be tinted")
	} else if len(report.Unknown) > 0 {
		log.Debug().Strs("unknown", report.Unknown).Msg("map asset has paths outside the catalog")
	}
	return asset, nil
}

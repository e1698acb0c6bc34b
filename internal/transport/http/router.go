package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/identity"
	"world-quiz-service/internal/worldmap"
)

// API serves the JSON endpoints next to the WebSocket channel.
type API struct {
	service *app.QuizService
	asset   *worldmap.Asset
}

// NewRouter wires every route. asset may be nil when no map is configured.
func NewRouter(service *app.QuizService, verifier *identity.Verifier, asset *worldmap.Asset) http.Handler {
	api := &API{service: service, asset: asset}
	ws := NewWSHandler(service, verifier)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", api.healthz)
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/countries", api.countries)
		r.Get("/leaderboard", api.leaderboard)
		r.Get("/users/{userID}/best", api.bestScore)
		r.Get("/sessions/{sessionID}", api.session)
		r.Get("/sessions/{sessionID}/coloring", api.coloring)
		r.Get("/sessions/{sessionID}/map.svg", api.mapSVG)
	})
	return r
}

type health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	n, err := a.service.LiveSessions(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("healthz: count sessions")
		writeJSON(w, http.StatusServiceUnavailable, health{Status: "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, health{Status: "ok", Sessions: n})
}

func (a *API) countries(w http.ResponseWriter, r *http.Request) {
	countries, err := a.service.Countries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) bestScore(w http.ResponseWriter, r *http.Request) {
	score, err := a.service.BestScore(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) coloring(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Coloring())
}

func (a *API) mapSVG(w http.ResponseWriter, r *http.Request) {
	if a.asset == nil {
		writeError(w, errNoMapAsset)
		return
	}
	session, err := a.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := a.asset.Render(&buf, session.Coloring()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// requestLogger logs one line per request with its id, status and latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

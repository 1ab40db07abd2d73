package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/override"
	"github.com/vilniusrent/valuation-cli/internal/store"
	"github.com/vilniusrent/valuation-cli/internal/valuation"
	"github.com/vilniusrent/valuation-cli/pkg/geocode"
)

var servePort int

// serverEnv bundles the dependencies the HTTP handlers need.
type serverEnv struct {
	service        *valuation.Service
	store          store.Store
	overrides      override.Store
	resolver       *override.Resolver
	geocoder       geocode.Client
	topN           int
	candidateLimit int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the valuation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		svc, st, ovr, err := newService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()  //nolint:errcheck
		defer ovr.Close() //nolint:errcheck

		env := &serverEnv{
			service:        svc,
			store:          st,
			overrides:      ovr,
			resolver:       override.NewResolver(ovr),
			geocoder:       newGeocoder(),
			topN:           cfg.Comparables.TopN,
			candidateLimit: cfg.Comparables.CandidateLimit,
		}

		retention, err := time.ParseDuration(cfg.Server.ValuationRetention)
		if err != nil {
			return eris.Wrap(err, "parse valuation retention")
		}
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Server.PruneSchedule, func() {
			n, pruneErr := st.DeleteOldValuations(ctx, retention)
			if pruneErr != nil {
				zap.L().Error("valuation pruning failed", zap.Error(pruneErr))
				return
			}
			zap.L().Info("pruned old valuations", zap.Int("deleted", n))
		}); err != nil {
			return eris.Wrap(err, "schedule pruning")
		}
		scheduler.Start()
		defer scheduler.Stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the API router.
func newRouter(env *serverEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/valuations", env.handleCreateValuation)
		r.Get("/valuations", env.handleListValuations)
		r.Get("/valuations/{id}", env.handleGetValuation)
		r.Post("/resolve", env.handleResolve)
		r.Post("/comparables", env.handleComparables)
		r.Get("/overrides", env.handleListOverrides)
		r.Post("/overrides", env.handleApplyOverride)
		r.Delete("/overrides/{name}", env.handleRemoveOverride)
	})
	return r
}

func (env *serverEnv) handleCreateValuation(w http.ResponseWriter, r *http.Request) {
	var in valuation.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := env.service.Evaluate(r.Context(), in)
	if err != nil {
		zap.L().Error("valuation failed", zap.String("place", in.Place), zap.Error(err))
		writeError(w, http.StatusBadGateway, "valuation failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (env *serverEnv) handleListValuations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	valuations, err := env.store.ListValuations(r.Context(), limit)
	if err != nil {
		zap.L().Error("list valuations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list valuations failed")
		return
	}
	if valuations == nil {
		valuations = []store.Valuation{}
	}
	writeJSON(w, http.StatusOK, valuations)
}

func (env *serverEnv) handleGetValuation(w http.ResponseWriter, r *http.Request) {
	v, err := env.store.GetValuation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "valuation not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (env *serverEnv) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Place string `json:"place"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Place == "" {
		writeError(w, http.StatusBadRequest, "place is required")
		return
	}

	candidates, err := env.geocoder.Search(r.Context(), req.Place)
	if err != nil {
		zap.L().Error("geocoding failed", zap.String("place", req.Place), zap.Error(err))
		writeError(w, http.StatusBadGateway, "geocoding failed")
		return
	}
	if len(candidates) == 0 {
		writeError(w, http.StatusNotFound, "no geocoding results")
		return
	}

	type resolved struct {
		DisplayName string              `json:"display_name"`
		Latitude    float64             `json:"latitude"`
		Longitude   float64             `json:"longitude"`
		Resolution  district.Resolution `json:"resolution"`
	}
	out := make([]resolved, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, resolved{
			DisplayName: c.DisplayName,
			Latitude:    c.Latitude,
			Longitude:   c.Longitude,
			Resolution:  env.resolver.Resolve(r.Context(), c.Address),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (env *serverEnv) handleComparables(w http.ResponseWriter, r *http.Request) {
	var req struct {
		District string  `json:"district"`
		Rooms    int     `json:"rooms"`
		AreaM2   float64 `json:"area_m2"`
		Price    float64 `json:"price"`
		TopN     int     `json:"top_n,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, ok := district.Canonical(req.District)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%q is not a canonical district", req.District))
		return
	}

	limit := env.candidateLimit
	if limit <= 0 {
		limit = 200
	}
	listings, err := env.store.ListListings(r.Context(), store.ListingFilter{Limit: limit})
	if err != nil {
		zap.L().Error("list listings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list listings failed")
		return
	}

	topN := req.TopN
	if topN <= 0 {
		topN = env.topN
	}
	ranked, err := comparable.Rank(comparable.Query{
		District: d,
		Rooms:    req.Rooms,
		AreaM2:   req.AreaM2,
		Price:    req.Price,
	}, listings, topN)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (env *serverEnv) handleApplyOverride(w http.ResponseWriter, r *http.Request) {
	var o override.Override
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := o.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := env.overrides.Apply(r.Context(), o); err != nil {
		zap.L().Error("apply override failed", zap.String("raw_name", o.RawName), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "apply override failed")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (env *serverEnv) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "override name is required")
		return
	}

	previous, err := env.overrides.Remove(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no override for %q", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":  name,
		"restored": previous,
	})
}

func (env *serverEnv) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := env.overrides.List(r.Context())
	if err != nil {
		zap.L().Error("list overrides failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list overrides failed")
		return
	}
	if overrides == nil {
		overrides = []override.Override{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vilniusrent/valuation-cli/internal/override"
	"github.com/vilniusrent/valuation-cli/internal/store"
	"github.com/vilniusrent/valuation-cli/internal/valuation"
	"github.com/vilniusrent/valuation-cli/pkg/geocode"
	"github.com/vilniusrent/valuation-cli/pkg/predict"
)

// openStore opens the configured listing/valuation store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// openOverrideStore opens the configured override backend.
func openOverrideStore() (override.Store, error) {
	switch cfg.Overrides.Backend {
	case "file":
		return override.NewFileStore(cfg.Overrides.Path), nil
	case "sqlite":
		return override.NewSQLiteStore(cfg.Overrides.Path)
	default:
		return nil, eris.Errorf("unknown overrides backend %q", cfg.Overrides.Backend)
	}
}

func newGeocoder() geocode.Client {
	return geocode.NewClient(
		geocode.WithBaseURL(cfg.Nominatim.BaseURL),
		geocode.WithUserAgent(cfg.Nominatim.UserAgent),
		geocode.WithRateLimit(cfg.Nominatim.RateLimit),
		geocode.WithMaxResults(cfg.Nominatim.MaxResults),
		geocode.WithCacheTTL(time.Duration(cfg.Nominatim.CacheTTLHours)*time.Hour),
		geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Nominatim.TimeoutSecs) * time.Second,
		}),
	)
}

func newPredictor() predict.Client {
	return predict.NewClient(
		predict.WithBaseURL(cfg.Predict.BaseURL),
		predict.WithAPIKey(cfg.Predict.APIKey),
		predict.WithMaxRetries(cfg.Predict.MaxRetries),
		predict.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Predict.TimeoutSecs) * time.Second,
		}),
	)
}

// newService assembles the full valuation service. The caller owns both
// returned closers.
func newService(ctx context.Context) (*valuation.Service, store.Store, override.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	ovr, err := openOverrideStore()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, nil, err
	}

	svc := valuation.NewService(valuation.Params{
		Geocoder:       newGeocoder(),
		Predictor:      newPredictor(),
		Resolver:       override.NewResolver(ovr),
		Store:          st,
		TopN:           cfg.Comparables.TopN,
		CandidateLimit: cfg.Comparables.CandidateLimit,
	})
	return svc, st, ovr, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

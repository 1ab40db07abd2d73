// Package valuation orchestrates a full rent valuation: geocoding, district
// resolution, model prediction and comparable selection.
package valuation

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/override"
	"github.com/vilniusrent/valuation-cli/internal/store"
	"github.com/vilniusrent/valuation-cli/pkg/geocode"
	"github.com/vilniusrent/valuation-cli/pkg/predict"
)

// Input describes the unit to value.
type Input struct {
	Place     string  `json:"place"`
	Rooms     int     `json:"rooms"`
	AreaM2    float64 `json:"area_m2"`
	Floor     int     `json:"floor,omitempty"`
	BuildYear int     `json:"build_year,omitempty"`
}

// Validate rejects inputs the model cannot price.
func (in Input) Validate() error {
	if in.Place == "" {
		return eris.New("valuation: place is required")
	}
	if in.Rooms <= 0 {
		return eris.Errorf("valuation: rooms must be positive, got %d", in.Rooms)
	}
	if in.AreaM2 <= 0 {
		return eris.Errorf("valuation: area must be positive, got %.2f", in.AreaM2)
	}
	return nil
}

// Result is a completed valuation with its supporting evidence.
type Result struct {
	Valuation   store.Valuation      `json:"valuation"`
	Resolution  district.Resolution  `json:"resolution"`
	Geocoded    *geocode.Candidate   `json:"geocoded,omitempty"`
	Comparables []comparable.Listing `json:"comparables"`
}

// Service runs valuations end to end.
type Service struct {
	geocoder       geocode.Client
	predictor      predict.Client
	resolver       *override.Resolver
	store          store.Store
	topN           int
	candidateLimit int
}

// Params wires a Service's dependencies.
type Params struct {
	Geocoder       geocode.Client
	Predictor      predict.Client
	Resolver       *override.Resolver
	Store          store.Store
	TopN           int
	CandidateLimit int
}

// NewService creates a valuation Service.
func NewService(p Params) *Service {
	if p.TopN <= 0 {
		p.TopN = 4
	}
	if p.CandidateLimit <= 0 {
		p.CandidateLimit = 200
	}
	if p.Resolver == nil {
		p.Resolver = override.NewResolver(nil)
	}
	return &Service{
		geocoder:       p.Geocoder,
		predictor:      p.Predictor,
		resolver:       p.Resolver,
		store:          p.Store,
		topN:           p.TopN,
		candidateLimit: p.CandidateLimit,
	}
}

// Evaluate geocodes the place, resolves its district, fetches a prediction
// and comparable listings concurrently, and persists the outcome.
func (s *Service) Evaluate(ctx context.Context, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.geocoder.Search(ctx, in.Place)
	if err != nil {
		return nil, eris.Wrapf(err, "valuation: geocode %q", in.Place)
	}
	if len(candidates) == 0 {
		return nil, eris.Errorf("valuation: no geocoding results for %q", in.Place)
	}

	picked, resolution := s.resolveCandidates(ctx, candidates)
	zap.L().Info("district resolved",
		zap.String("place", in.Place),
		zap.String("district", string(resolution.District)),
		zap.String("confidence", string(resolution.Confidence)),
		zap.String("source", string(resolution.Source)))

	var (
		prediction *predict.Response
		listings   []comparable.Listing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var predictErr error
		prediction, predictErr = s.predictor.Predict(gctx, predict.Request{
			District:  string(resolution.District),
			Rooms:     in.Rooms,
			AreaM2:    in.AreaM2,
			Floor:     in.Floor,
			BuildYear: in.BuildYear,
		})
		return eris.Wrap(predictErr, "valuation: predict")
	})
	g.Go(func() error {
		var listErr error
		listings, listErr = s.store.ListListings(gctx, store.ListingFilter{Limit: s.candidateLimit})
		return eris.Wrap(listErr, "valuation: list comparables")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	comparables, err := comparable.Rank(comparable.Query{
		District: resolution.District,
		Rooms:    in.Rooms,
		AreaM2:   in.AreaM2,
		Price:    prediction.PricePerMonth,
	}, listings, s.topN)
	if err != nil {
		return nil, eris.Wrap(err, "valuation: rank comparables")
	}

	valuation := store.Valuation{
		Place:          in.Place,
		District:       resolution.District,
		Confidence:     resolution.Confidence,
		Rooms:          in.Rooms,
		AreaM2:         in.AreaM2,
		Floor:          in.Floor,
		BuildYear:      in.BuildYear,
		PredictedPrice: prediction.PricePerMonth,
		PricePerM2:     prediction.PricePerM2,
		ModelVersion:   prediction.ModelVersion,
	}
	if err := s.store.CreateValuation(ctx, &valuation); err != nil {
		return nil, eris.Wrap(err, "valuation: persist")
	}

	return &Result{
		Valuation:   valuation,
		Resolution:  resolution,
		Geocoded:    picked,
		Comparables: comparables,
	}, nil
}

// resolveCandidates resolves each geocoding candidate in order and picks the
// first that lands in a known district. When every candidate falls back to
// Other, the first candidate is kept and annotated with its nearest district
// centroid as a diagnostic.
func (s *Service) resolveCandidates(ctx context.Context, candidates []geocode.Candidate) (*geocode.Candidate, district.Resolution) {
	for i := range candidates {
		res := s.resolver.Resolve(ctx, candidates[i].Address)
		if !res.Fallback() {
			return &candidates[i], res
		}
	}

	first := candidates[0]
	res := s.resolver.Resolve(ctx, first.Address)
	if nearest, km := district.Nearest(first.Latitude, first.Longitude); nearest != district.Other {
		res.Notes = fmt.Sprintf("nearest district centroid: %s (%.1f km)", nearest, km)
	}
	return &candidates[0], res
}

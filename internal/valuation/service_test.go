package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/override"
	"github.com/vilniusrent/valuation-cli/internal/store"
	"github.com/vilniusrent/valuation-cli/pkg/geocode"
	"github.com/vilniusrent/valuation-cli/pkg/predict"
)

type fakeGeocoder struct {
	candidates []geocode.Candidate
	err        error
}

func (f *fakeGeocoder) Search(_ context.Context, _ string) ([]geocode.Candidate, error) {
	return f.candidates, f.err
}

type fakePredictor struct {
	resp     *predict.Response
	err      error
	lastReq  predict.Request
	requests int
}

func (f *fakePredictor) Predict(_ context.Context, req predict.Request) (*predict.Response, error) {
	f.lastReq = req
	f.requests++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeStore struct {
	listings   []comparable.Listing
	listErr    error
	valuations []store.Valuation
	createErr  error
}

func (f *fakeStore) UpsertListing(_ context.Context, _ comparable.Listing) error { return nil }
func (f *fakeStore) ListListings(_ context.Context, _ store.ListingFilter) ([]comparable.Listing, error) {
	return f.listings, f.listErr
}
func (f *fakeStore) CreateValuation(_ context.Context, v *store.Valuation) error {
	if f.createErr != nil {
		return f.createErr
	}
	v.ID = "val-1"
	v.CreatedAt = time.Now().UTC()
	f.valuations = append(f.valuations, *v)
	return nil
}
func (f *fakeStore) GetValuation(_ context.Context, _ string) (*store.Valuation, error) {
	return nil, eris.New("not implemented")
}
func (f *fakeStore) ListValuations(_ context.Context, _ int) ([]store.Valuation, error) {
	return f.valuations, nil
}
func (f *fakeStore) DeleteOldValuations(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}
func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                    { return nil }

func zverynasCandidate() geocode.Candidate {
	return geocode.Candidate{
		DisplayName: "Žvėrynas, Vilnius",
		Latitude:    54.693,
		Longitude:   25.236,
		Address:     district.AddressRecord{Suburb: "Žvėrynas"},
	}
}

func newTestService(geo *fakeGeocoder, pred *fakePredictor, st *fakeStore) *Service {
	return NewService(Params{
		Geocoder:  geo,
		Predictor: pred,
		Store:     st,
	})
}

func TestEvaluate(t *testing.T) {
	geo := &fakeGeocoder{candidates: []geocode.Candidate{zverynasCandidate()}}
	pred := &fakePredictor{resp: &predict.Response{PricePerMonth: 900, PricePerM2: 18, ModelVersion: "v3"}}
	st := &fakeStore{listings: []comparable.Listing{
		{ID: "a", District: "Žvėrynas", Rooms: 2, AreaM2: 50, Price: 880},
		{ID: "b", District: "Paneriai", Rooms: 5, AreaM2: 160, Price: 2500},
	}}

	result, err := newTestService(geo, pred, st).Evaluate(context.Background(), Input{
		Place: "Žvėrynas", Rooms: 2, AreaM2: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, district.CanonicalDistrict("Žvėrynas"), result.Resolution.District)
	assert.Equal(t, district.ConfidenceExact, result.Resolution.Confidence)
	assert.Equal(t, 900.0, result.Valuation.PredictedPrice)
	assert.Equal(t, "val-1", result.Valuation.ID)
	require.Len(t, st.valuations, 1)

	// Prediction was requested for the resolved district.
	assert.Equal(t, "Žvėrynas", pred.lastReq.District)

	// Best comparable first.
	require.NotEmpty(t, result.Comparables)
	assert.Equal(t, "a", result.Comparables[0].ID)
	assert.Greater(t, result.Comparables[0].SimilarityScore, result.Comparables[len(result.Comparables)-1].SimilarityScore)
}

func TestEvaluate_ValidatesInput(t *testing.T) {
	svc := newTestService(&fakeGeocoder{}, &fakePredictor{}, &fakeStore{})

	tests := []struct {
		name string
		in   Input
	}{
		{"empty place", Input{Rooms: 2, AreaM2: 50}},
		{"zero rooms", Input{Place: "Vilnius", AreaM2: 50}},
		{"zero area", Input{Place: "Vilnius", Rooms: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Evaluate(context.Background(), tt.in)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate_NoGeocodingResults(t *testing.T) {
	svc := newTestService(&fakeGeocoder{}, &fakePredictor{}, &fakeStore{})

	_, err := svc.Evaluate(context.Background(), Input{Place: "nowhere", Rooms: 1, AreaM2: 40})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geocoding results")
}

func TestEvaluate_SkipsFallbackCandidates(t *testing.T) {
	geo := &fakeGeocoder{candidates: []geocode.Candidate{
		{DisplayName: "unknown place", Address: district.AddressRecord{Suburb: "Vilniaus apskritis"}},
		zverynasCandidate(),
	}}
	pred := &fakePredictor{resp: &predict.Response{PricePerMonth: 900, PricePerM2: 18, ModelVersion: "v3"}}
	st := &fakeStore{}

	result, err := newTestService(geo, pred, st).Evaluate(context.Background(), Input{
		Place: "Žvėrynas", Rooms: 2, AreaM2: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, district.CanonicalDistrict("Žvėrynas"), result.Resolution.District)
	assert.Equal(t, "Žvėrynas, Vilnius", result.Geocoded.DisplayName)
}

func TestEvaluate_AllFallback_AnnotatesNearestCentroid(t *testing.T) {
	// Coordinates inside Senamiestis but no usable address fields.
	geo := &fakeGeocoder{candidates: []geocode.Candidate{
		{DisplayName: "somewhere", Latitude: 54.6780, Longitude: 25.2890},
	}}
	pred := &fakePredictor{resp: &predict.Response{PricePerMonth: 700, PricePerM2: 17, ModelVersion: "v3"}}
	st := &fakeStore{}

	result, err := newTestService(geo, pred, st).Evaluate(context.Background(), Input{
		Place: "somewhere", Rooms: 1, AreaM2: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, district.Other, result.Resolution.District)
	assert.Equal(t, district.ConfidenceFallback, result.Resolution.Confidence)
	assert.Contains(t, result.Resolution.Notes, "nearest district centroid")
}

func TestEvaluate_AppliesOverride(t *testing.T) {
	geo := &fakeGeocoder{candidates: []geocode.Candidate{zverynasCandidate()}}
	pred := &fakePredictor{resp: &predict.Response{PricePerMonth: 900, PricePerM2: 18, ModelVersion: "v3"}}
	st := &fakeStore{}

	overrideStore := override.NewFileStore(t.TempDir() + "/overrides.json")
	prev := district.CanonicalDistrict("Žvėrynas")
	require.NoError(t, overrideStore.Apply(context.Background(), override.Override{
		RawName:           "Žvėrynas",
		PreviousDistrict:  &prev,
		CorrectedDistrict: "Šnipiškės",
		Reason:            "boundary correction",
	}))

	svc := NewService(Params{
		Geocoder:  geo,
		Predictor: pred,
		Resolver:  override.NewResolver(overrideStore),
		Store:     st,
	})

	result, err := svc.Evaluate(context.Background(), Input{Place: "Žvėrynas", Rooms: 2, AreaM2: 50})
	require.NoError(t, err)
	assert.Equal(t, district.CanonicalDistrict("Šnipiškės"), result.Resolution.District)
	assert.Equal(t, district.ConfidenceExact, result.Resolution.Confidence)
	assert.Equal(t, "Šnipiškės", pred.lastReq.District)
}

func TestEvaluate_PredictionFailureAborts(t *testing.T) {
	geo := &fakeGeocoder{candidates: []geocode.Candidate{zverynasCandidate()}}
	pred := &fakePredictor{err: eris.New("model unavailable")}
	st := &fakeStore{}

	_, err := newTestService(geo, pred, st).Evaluate(context.Background(), Input{
		Place: "Žvėrynas", Rooms: 2, AreaM2: 50,
	})
	require.Error(t, err)
	assert.Empty(t, st.valuations)
}

func TestEvaluate_ListingFailureAborts(t *testing.T) {
	geo := &fakeGeocoder{candidates: []geocode.Candidate{zverynasCandidate()}}
	pred := &fakePredictor{resp: &predict.Response{PricePerMonth: 900, PricePerM2: 18}}
	st := &fakeStore{listErr: eris.New("db down")}

	_, err := newTestService(geo, pred, st).Evaluate(context.Background(), Input{
		Place: "Žvėrynas", Rooms: 2, AreaM2: 50,
	})
	require.Error(t, err)
	assert.Empty(t, st.valuations)
}

// Package geocode resolves free-form Vilnius place names to coordinates and
// OSM address details via the Nominatim search API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// Client geocodes free-form place queries.
type Client interface {
	// Search returns geocoding candidates for a place query, best match first.
	Search(ctx context.Context, place string) ([]Candidate, error)
}

// Candidate is one geocoding result for a query.
type Candidate struct {
	DisplayName string
	Latitude    float64
	Longitude   float64
	Class       string
	Type        string
	Importance  float64
	Address     district.AddressRecord
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(baseURL string) Option {
	return func(g *geocoder) {
		g.baseURL = baseURL
	}
}

// WithUserAgent sets the User-Agent header. Public Nominatim requires an
// identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit for Nominatim calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxResults caps the number of candidates requested per query.
func WithMaxResults(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.maxResults = n
		}
	}
}

// WithCacheTTL enables in-memory caching of search results for the given
// duration. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *geocoder) {
		g.cacheTTL = ttl
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	maxResults int
	cacheTTL   time.Duration
	cache      *searchCache
}

// NewClient creates a geocoding Client with the given options. The default
// rate limit of 1 req/s matches the public Nominatim usage policy.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "vilniusrent-valuation-cli/1.0",
		limiter:    rate.NewLimiter(1, 1),
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cacheTTL > 0 {
		g.cache = newSearchCache()
	}
	return g
}

// Search geocodes a place query, consulting the cache first when enabled.
func (g *geocoder) Search(ctx context.Context, place string) ([]Candidate, error) {
	key := cacheKey(place)
	if g.cache != nil {
		if cached, ok := g.cache.get(key, g.cacheTTL); ok {
			return cached, nil
		}
	}

	candidates, err := g.search(ctx, place)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.put(key, candidates)
	}
	return candidates, nil
}

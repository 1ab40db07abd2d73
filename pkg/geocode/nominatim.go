package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

const (
	countryCodes = "lt"
	querySuffix  = ", Vilnius, Lithuania"
)

// vilniusQuery anchors a free-form place to the city. Lithuanian district
// names repeat across cities (Kaunas and Klaipėda both have a Senamiestis);
// the suffix keeps the lookup inside Vilnius. Queries that already mention
// Vilnius pass through unchanged.
func vilniusQuery(place string) string {
	if strings.Contains(strings.ToLower(place), "vilnius") {
		return place
	}
	return place + querySuffix
}

// nominatimPlace is one entry of the Nominatim /search jsonv2 response.
// Coordinates arrive as strings.
type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Category    string           `json:"category"`
	Type        string           `json:"type"`
	Importance  float64          `json:"importance"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Quarter       string `json:"quarter"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
}

func (g *geocoder) search(ctx context.Context, place string) ([]Candidate, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":              {vilniusQuery(place)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"countrycodes":   {countryCodes},
		"limit":          {strconv.Itoa(g.maxResults)},
	}

	reqURL := g.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	candidates := make([]Candidate, 0, len(places))
	for _, p := range places {
		lat, latErr := strconv.ParseFloat(p.Lat, 64)
		lon, lonErr := strconv.ParseFloat(p.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			DisplayName: p.DisplayName,
			Latitude:    lat,
			Longitude:   lon,
			Class:       p.Category,
			Type:        p.Type,
			Importance:  p.Importance,
			Address: district.AddressRecord{
				Quarter:       p.Address.Quarter,
				Neighbourhood: p.Address.Neighbourhood,
				Suburb:        p.Address.Suburb,
			},
		})
	}
	return candidates, nil
}

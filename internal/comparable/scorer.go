// Package comparable ranks previously observed rental listings against a
// valuation query so the closest comparables can be surfaced next to a
// prediction.
package comparable

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// Component weights. The theoretical maximum score is 100.
const (
	weightPrice    = 50.0
	weightDistrict = 30.0
	weightRooms    = 10.0
	weightArea     = 10.0
)

const (
	adjacentDistrictScore = 0.3
	offByOneRoomScore     = 0.5
	// areaDecaySpan: area similarity reaches zero at a 50% relative difference.
	areaDecaySpan = 0.5
)

// defaultTopN is how many comparables the product surfaces.
const defaultTopN = 4

// Query describes the unit being valued.
type Query struct {
	District district.CanonicalDistrict `json:"district"`
	Rooms    int                        `json:"rooms"`
	AreaM2   float64                    `json:"area_m2"`
	Price    float64                    `json:"price"`
}

// Validate rejects queries the scorer's contract excludes: non-positive
// price or area would divide by zero inside the similarity terms.
func (q Query) Validate() error {
	if q.Price <= 0 {
		return eris.Errorf("comparable: query price must be positive, got %.2f", q.Price)
	}
	if q.AreaM2 <= 0 {
		return eris.Errorf("comparable: query area must be positive, got %.2f", q.AreaM2)
	}
	return nil
}

// Listing is an observed rental record used as a comparable candidate.
type Listing struct {
	ID              string  `json:"id,omitempty"`
	District        string  `json:"district"`
	Street          string  `json:"street,omitempty"`
	Rooms           int     `json:"rooms"`
	AreaM2          float64 `json:"area_m2"`
	Price           float64 `json:"price"`
	PredictedPrice  float64 `json:"predicted_price,omitempty"`
	ImageURL        string  `json:"image_url,omitempty"`
	SourceURL       string  `json:"source_url,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// Score computes the weighted similarity of a candidate to the query,
// rounded to one decimal place. Deterministic, pure, in [0, 100]. The query
// must be validated first; Score assumes positive price and area.
func Score(q Query, c Listing) float64 {
	price := math.Max(0, 1-math.Abs(q.Price-c.Price)/q.Price)

	var districtScore float64
	if cd, ok := district.Canonical(c.District); ok {
		switch {
		case cd == q.District:
			districtScore = 1.0
		case district.IsAdjacent(q.District, cd):
			districtScore = adjacentDistrictScore
		}
	}

	var rooms float64
	switch diff := q.Rooms - c.Rooms; {
	case diff == 0:
		rooms = 1.0
	case diff == 1 || diff == -1:
		rooms = offByOneRoomScore
	}

	area := math.Max(0, 1-math.Abs(q.AreaM2-c.AreaM2)/q.AreaM2/areaDecaySpan)

	total := weightPrice*price + weightDistrict*districtScore +
		weightRooms*rooms + weightArea*area
	return math.Round(total*10) / 10
}

// Rank scores candidates against the query and returns the top N by score
// descending, original input order breaking ties. topN <= 0 uses the product
// default of 4. Returns the candidates with SimilarityScore populated.
func Rank(q Query, candidates []Listing, topN int) ([]Listing, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = defaultTopN
	}

	type scored struct {
		listing Listing
		idx     int
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		c.SimilarityScore = Score(q, c)
		ranked[i] = scored{listing: c, idx: i}
	}

	// Explicit index tiebreak keeps output deterministic without relying on
	// sort stability.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].listing.SimilarityScore != ranked[j].listing.SimilarityScore {
			return ranked[i].listing.SimilarityScore > ranked[j].listing.SimilarityScore
		}
		return ranked[i].idx < ranked[j].idx
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := make([]Listing, len(ranked))
	for i, s := range ranked {
		out[i] = s.listing
	}
	return out, nil
}

package comparable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var senamiestisQuery = Query{
	District: "Senamiestis",
	Rooms:    2,
	AreaM2:   50,
	Price:    1000,
}

func TestScore_IdenticalListing(t *testing.T) {
	score := Score(senamiestisQuery, Listing{
		District: "Senamiestis",
		Rooms:    2,
		AreaM2:   50,
		Price:    1000,
	})
	assert.Equal(t, 100.0, score)
}

func TestScore_DistantListing(t *testing.T) {
	// Price diff 100% -> 0; Žvėrynas not adjacent to Senamiestis -> 0;
	// rooms off by one -> 0.5; area diff 100% -> 0. Total 5.0.
	score := Score(senamiestisQuery, Listing{
		District: "Žvėrynas",
		Rooms:    1,
		AreaM2:   100,
		Price:    2000,
	})
	assert.Equal(t, 5.0, score)
}

func TestScore_AdjacentDistrict(t *testing.T) {
	same := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000})
	adjacent := Score(senamiestisQuery, Listing{District: "Naujamiestis", Rooms: 2, AreaM2: 50, Price: 1000})
	far := Score(senamiestisQuery, Listing{District: "Žvėrynas", Rooms: 2, AreaM2: 50, Price: 1000})

	assert.Equal(t, 100.0, same)
	assert.Equal(t, 79.0, adjacent) // 70 + 30*0.3
	assert.Equal(t, 70.0, far)
	assert.Greater(t, same, adjacent)
	assert.Greater(t, adjacent, far)
}

func TestScore_RawDistrictStringsNormalize(t *testing.T) {
	// Listing districts arrive as raw strings; canonical matching ignores case.
	score := Score(senamiestisQuery, Listing{District: "senamiestis", Rooms: 2, AreaM2: 50, Price: 1000})
	assert.Equal(t, 100.0, score)

	// Unknown raw district contributes nothing.
	score = Score(senamiestisQuery, Listing{District: "Old Town", Rooms: 2, AreaM2: 50, Price: 1000})
	assert.Equal(t, 70.0, score)
}

func TestScore_Bounds(t *testing.T) {
	candidates := []Listing{
		{District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000},
		{District: "Paneriai", Rooms: 9, AreaM2: 500, Price: 9000},
		{},
		{District: "Naujamiestis", Rooms: 3, AreaM2: 55, Price: 1100},
		{District: "Senamiestis", Rooms: 2, AreaM2: 0.1, Price: 0.1},
	}
	for i, c := range candidates {
		score := Score(senamiestisQuery, c)
		assert.GreaterOrEqual(t, score, 0.0, "candidate %d", i)
		assert.LessOrEqual(t, score, 100.0, "candidate %d", i)
	}
}

func TestScore_PriceMonotonicity(t *testing.T) {
	// Shrinking the price gap never decreases the score, all else fixed.
	base := Listing{District: "Senamiestis", Rooms: 2, AreaM2: 50}
	prev := -1.0
	for _, price := range []float64{2200, 1800, 1500, 1250, 1100, 1000} {
		c := base
		c.Price = price
		score := Score(senamiestisQuery, c)
		assert.GreaterOrEqual(t, score, prev, "price %.0f", price)
		prev = score
	}
}

func TestScore_RoomSteps(t *testing.T) {
	exact := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000})
	offOne := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 3, AreaM2: 50, Price: 1000})
	offTwo := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 4, AreaM2: 50, Price: 1000})

	assert.Equal(t, 100.0, exact)
	assert.Equal(t, 95.0, offOne)
	assert.Equal(t, 90.0, offTwo)
}

func TestScore_AreaDecay(t *testing.T) {
	// Area similarity hits zero at a 50% relative difference.
	half := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 2, AreaM2: 75, Price: 1000})
	gone := Score(senamiestisQuery, Listing{District: "Senamiestis", Rooms: 2, AreaM2: 100, Price: 1000})

	assert.Equal(t, 95.0, half) // 90 + 10*0.5
	assert.Equal(t, 90.0, gone)
}

func TestRank_TopNAndOrdering(t *testing.T) {
	candidates := make([]Listing, 6)
	for i := range candidates {
		candidates[i] = Listing{
			ID:       fmt.Sprintf("listing-%d", i),
			District: "Senamiestis",
			Rooms:    2,
			AreaM2:   50,
			Price:    1000 + float64(i)*150,
		}
	}

	ranked, err := Rank(senamiestisQuery, candidates, 0)
	require.NoError(t, err)

	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.Greater(t, ranked[i-1].SimilarityScore, ranked[i].SimilarityScore)
	}
	assert.Equal(t, "listing-0", ranked[0].ID)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	candidates := []Listing{
		{ID: "a", District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000},
		{ID: "b", District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000},
		{ID: "c", District: "Senamiestis", Rooms: 2, AreaM2: 50, Price: 1000},
	}

	ranked, err := Rank(senamiestisQuery, candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}

func TestRank_FewerCandidatesThanTopN(t *testing.T) {
	ranked, err := Rank(senamiestisQuery, []Listing{
		{ID: "only", District: "Rasos", Rooms: 1, AreaM2: 30, Price: 700},
	}, 4)
	require.NoError(t, err)
	assert.Len(t, ranked, 1)
}

func TestRank_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"zero price", Query{District: "Rasos", Rooms: 1, AreaM2: 30}},
		{"negative price", Query{District: "Rasos", Rooms: 1, AreaM2: 30, Price: -5}},
		{"zero area", Query{District: "Rasos", Rooms: 1, Price: 700}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(tt.query, nil, 4)
			assert.Error(t, err)
		})
	}
}

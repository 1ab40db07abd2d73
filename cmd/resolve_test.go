package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilniusrent/valuation-cli/internal/config"
	"github.com/vilniusrent/valuation-cli/internal/district"
)

func setResolveFlags(t *testing.T, noGeocode bool, quarter, neighbourhood, suburb string) {
	t.Helper()
	origNo, origQ, origN, origS := resolveNoGeocode, resolveQuarter, resolveNeighbourhood, resolveSuburb
	t.Cleanup(func() {
		resolveNoGeocode, resolveQuarter, resolveNeighbourhood, resolveSuburb = origNo, origQ, origN, origS
	})
	resolveNoGeocode = noGeocode
	resolveQuarter = quarter
	resolveNeighbourhood = neighbourhood
	resolveSuburb = suburb
}

func setTestConfig(t *testing.T) {
	t.Helper()
	origCfg := cfg
	t.Cleanup(func() { cfg = origCfg })

	cfg = &config.Config{}
	cfg.Overrides.Backend = "file"
	cfg.Overrides.Path = filepath.Join(t.TempDir(), "overrides.json")
}

func TestRawAddressFromFlags(t *testing.T) {
	setResolveFlags(t, true, "Užupis", "", "Senamiesčio seniūnija")

	addr := rawAddressFromFlags()
	assert.Equal(t, district.AddressRecord{
		Quarter: "Užupis",
		Suburb:  "Senamiesčio seniūnija",
	}, addr)

	// Quarter wins over the coarser suburb field.
	res := district.Resolve(addr)
	assert.Equal(t, district.CanonicalDistrict("Užupis"), res.District)
}

func TestResolveNoGeocode(t *testing.T) {
	setTestConfig(t)
	setResolveFlags(t, true, "", "", "Žvėrynas")
	resolveCmd.SetContext(context.Background())

	require.NoError(t, resolveCmd.RunE(resolveCmd, nil))
}

func TestResolveRequiresPlaceWithoutNoGeocode(t *testing.T) {
	setTestConfig(t)
	setResolveFlags(t, false, "", "", "")
	resolveCmd.SetContext(context.Background())

	err := resolveCmd.RunE(resolveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--no-geocode")
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/override"
)

var (
	resolveShowAll       bool
	resolveNoGeocode     bool
	resolveQuarter       string
	resolveNeighbourhood string
	resolveSuburb        string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [place]",
	Short: "Geocode a place and resolve its model district",
	Long:  "Geocodes a free-form place and resolves its model district. With --no-geocode the geocoder is skipped and the raw address fields are taken from --quarter, --neighbourhood and --suburb instead.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ovr, err := openOverrideStore()
		if err != nil {
			return err
		}
		defer ovr.Close() //nolint:errcheck
		resolver := override.NewResolver(ovr)

		if resolveNoGeocode {
			return printJSON(resolver.Resolve(ctx, rawAddressFromFlags()))
		}

		if len(args) != 1 {
			return eris.New("a place argument is required unless --no-geocode is set")
		}
		place := args[0]

		candidates, err := newGeocoder().Search(ctx, place)
		if err != nil {
			return eris.Wrapf(err, "geocode %q", place)
		}
		if len(candidates) == 0 {
			return eris.Errorf("no geocoding results for %q", place)
		}

		type resolved struct {
			DisplayName string              `json:"display_name"`
			Latitude    float64             `json:"latitude"`
			Longitude   float64             `json:"longitude"`
			Resolution  district.Resolution `json:"resolution"`
		}

		results := make([]resolved, 0, len(candidates))
		for _, c := range candidates {
			results = append(results, resolved{
				DisplayName: c.DisplayName,
				Latitude:    c.Latitude,
				Longitude:   c.Longitude,
				Resolution:  resolver.Resolve(ctx, c.Address),
			})
			if !resolveShowAll {
				break
			}
		}

		if resolveShowAll {
			return printJSON(results)
		}
		return printJSON(results[0])
	},
}

// rawAddressFromFlags builds the record the resolver consumes from the
// --no-geocode field flags.
func rawAddressFromFlags() district.AddressRecord {
	return district.AddressRecord{
		Quarter:       resolveQuarter,
		Neighbourhood: resolveNeighbourhood,
		Suburb:        resolveSuburb,
	}
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveShowAll, "all", false, "resolve every geocoding candidate, not just the best match")
	resolveCmd.Flags().BoolVar(&resolveNoGeocode, "no-geocode", false, "skip geocoding and resolve raw address fields from flags")
	resolveCmd.Flags().StringVar(&resolveQuarter, "quarter", "", "raw quarter field (with --no-geocode)")
	resolveCmd.Flags().StringVar(&resolveNeighbourhood, "neighbourhood", "", "raw neighbourhood field (with --no-geocode)")
	resolveCmd.Flags().StringVar(&resolveSuburb, "suburb", "", "raw suburb field (with --no-geocode)")
	rootCmd.AddCommand(resolveCmd)
}

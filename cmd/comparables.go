package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/store"
)

var (
	comparablesDistrict string
	comparablesRooms    int
	comparablesArea     float64
	comparablesPrice    float64
	comparablesTopN     int
)

var comparablesCmd = &cobra.Command{
	Use:   "comparables",
	Short: "Rank stored listings by similarity to a query apartment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		d, ok := district.Canonical(comparablesDistrict)
		if !ok {
			return eris.Errorf("%q is not a canonical district", comparablesDistrict)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		listings, err := st.ListListings(ctx, store.ListingFilter{Limit: cfg.Comparables.CandidateLimit})
		if err != nil {
			return eris.Wrap(err, "list listings")
		}

		topN := comparablesTopN
		if topN <= 0 {
			topN = cfg.Comparables.TopN
		}
		ranked, err := comparable.Rank(comparable.Query{
			District: d,
			Rooms:    comparablesRooms,
			AreaM2:   comparablesArea,
			Price:    comparablesPrice,
		}, listings, topN)
		if err != nil {
			return err
		}
		return printJSON(ranked)
	},
}

func init() {
	comparablesCmd.Flags().StringVar(&comparablesDistrict, "district", "", "canonical district name (required)")
	comparablesCmd.Flags().IntVar(&comparablesRooms, "rooms", 0, "number of rooms (required)")
	comparablesCmd.Flags().Float64Var(&comparablesArea, "area", 0, "area in square meters (required)")
	comparablesCmd.Flags().Float64Var(&comparablesPrice, "price", 0, "reference monthly price in EUR (required)")
	comparablesCmd.Flags().IntVar(&comparablesTopN, "top", 0, "how many comparables to return (default from config)")
	_ = comparablesCmd.MarkFlagRequired("district")
	_ = comparablesCmd.MarkFlagRequired("rooms")
	_ = comparablesCmd.MarkFlagRequired("area")
	_ = comparablesCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(comparablesCmd)
}

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/valuation"
)

var valueInput valuation.Input

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Run a full rent valuation for an apartment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("value"); err != nil {
			return err
		}

		svc, st, ovr, err := newService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()  //nolint:errcheck
		defer ovr.Close() //nolint:errcheck

		result, err := svc.Evaluate(ctx, valueInput)
		if err != nil {
			return err
		}

		zap.L().Info("valuation complete",
			zap.String("id", result.Valuation.ID),
			zap.String("district", string(result.Valuation.District)),
			zap.Float64("predicted_price", result.Valuation.PredictedPrice),
			zap.Int("comparables", len(result.Comparables)),
		)
		return printJSON(result)
	},
}

func init() {
	valueCmd.Flags().StringVar(&valueInput.Place, "place", "", "place or address in Vilnius (required)")
	valueCmd.Flags().IntVar(&valueInput.Rooms, "rooms", 0, "number of rooms (required)")
	valueCmd.Flags().Float64Var(&valueInput.AreaM2, "area", 0, "area in square meters (required)")
	valueCmd.Flags().IntVar(&valueInput.Floor, "floor", 0, "floor number")
	valueCmd.Flags().IntVar(&valueInput.BuildYear, "build-year", 0, "building construction year")
	_ = valueCmd.MarkFlagRequired("place")
	_ = valueCmd.MarkFlagRequired("rooms")
	_ = valueCmd.MarkFlagRequired("area")
	rootCmd.AddCommand(valueCmd)
}

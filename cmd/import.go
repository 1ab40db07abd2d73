package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import comparable listings from CSV into the store",
	Long:  "Expects a header row: id,district,street,rooms,area_m2,price,image_url,source_url. District names are matched against the canonical set; unknown districts are kept verbatim and simply never score district points.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close() //nolint:errcheck

		reader := csv.NewReader(f)
		header, err := reader.Read()
		if err != nil {
			return eris.Wrap(err, "read csv header")
		}
		col := make(map[string]int, len(header))
		for i, name := range header {
			col[name] = i
		}
		for _, required := range []string{"district", "rooms", "area_m2", "price"} {
			if _, ok := col[required]; !ok {
				return eris.Errorf("csv is missing required column %q", required)
			}
		}

		var imported, skipped int
		for line := 2; ; line++ {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return eris.Wrapf(err, "read csv line %d", line)
			}

			listing, err := listingFromRecord(record, col)
			if err != nil {
				zap.L().Warn("skipping csv row", zap.Int("line", line), zap.Error(err))
				skipped++
				continue
			}
			if err := st.UpsertListing(ctx, listing); err != nil {
				return eris.Wrapf(err, "upsert listing from line %d", line)
			}
			imported++
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("skipped", skipped),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func listingFromRecord(record []string, col map[string]int) (comparable.Listing, error) {
	field := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	rooms, err := strconv.Atoi(field("rooms"))
	if err != nil {
		return comparable.Listing{}, eris.Wrap(err, "parse rooms")
	}
	area, err := strconv.ParseFloat(field("area_m2"), 64)
	if err != nil {
		return comparable.Listing{}, eris.Wrap(err, "parse area_m2")
	}
	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return comparable.Listing{}, eris.Wrap(err, "parse price")
	}
	if rooms <= 0 || area <= 0 || price <= 0 {
		return comparable.Listing{}, eris.New("rooms, area_m2 and price must be positive")
	}

	rawDistrict := field("district")
	if d, ok := district.Canonical(rawDistrict); ok {
		rawDistrict = string(d)
	}

	return comparable.Listing{
		ID:        field("id"),
		District:  rawDistrict,
		Street:    field("street"),
		Rooms:     rooms,
		AreaM2:    area,
		Price:     price,
		ImageURL:  field("image_url"),
		SourceURL: field("source_url"),
	}, nil
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}

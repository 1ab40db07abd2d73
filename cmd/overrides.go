package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/district"
	"github.com/vilniusrent/valuation-cli/internal/override"
)

var (
	overrideApplyName     string
	overrideApplyDistrict string
	overrideApplyReason   string
	overrideExportXLSX    string
)

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Manage manual district corrections",
}

var overridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active overrides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ovr, err := openOverrideStore()
		if err != nil {
			return err
		}
		defer ovr.Close() //nolint:errcheck

		overrides, err := ovr.List(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "list overrides")
		}
		return printJSON(overrides)
	},
}

var overridesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply or replace an override for a raw place name",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		corrected, ok := district.Canonical(overrideApplyDistrict)
		if !ok && district.CanonicalDistrict(overrideApplyDistrict) != district.Other {
			return eris.Errorf("%q is not a canonical district", overrideApplyDistrict)
		}
		if !ok {
			corrected = district.Other
		}

		ovr, err := openOverrideStore()
		if err != nil {
			return err
		}
		defer ovr.Close() //nolint:errcheck

		// Record what the resolver currently produces so a later remove can
		// restore it.
		base := district.Resolve(district.AddressRecord{Suburb: overrideApplyName})
		var previous *district.CanonicalDistrict
		if !base.Fallback() {
			d := base.District
			previous = &d
		}

		o := override.Override{
			RawName:           overrideApplyName,
			PreviousDistrict:  previous,
			CorrectedDistrict: corrected,
			Reason:            overrideApplyReason,
		}
		if err := o.Validate(); err != nil {
			return err
		}
		if err := ovr.Apply(ctx, o); err != nil {
			return eris.Wrap(err, "apply override")
		}

		zap.L().Info("override applied",
			zap.String("raw_name", o.RawName),
			zap.String("district", string(o.CorrectedDistrict)),
		)
		return nil
	},
}

var overridesRemoveCmd = &cobra.Command{
	Use:   "remove <raw-name>",
	Short: "Remove an override, restoring the recorded previous district",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ovr, err := openOverrideStore()
		if err != nil {
			return err
		}
		defer ovr.Close() //nolint:errcheck

		previous, err := ovr.Remove(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "remove override")
		}

		restored := "automatic resolution"
		if previous != nil {
			restored = string(*previous)
		}
		fmt.Printf("removed override for %q, restored: %s\n", args[0], restored)
		return nil
	},
}

var overridesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the override set for offline review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ovr, err := openOverrideStore()
		if err != nil {
			return err
		}
		defer ovr.Close() //nolint:errcheck

		bundle, err := override.Export(ctx, ovr)
		if err != nil {
			return err
		}

		if overrideExportXLSX == "" {
			return printJSON(bundle)
		}
		if err := writeOverridesXLSX(bundle, overrideExportXLSX); err != nil {
			return err
		}
		zap.L().Info("overrides exported",
			zap.String("path", overrideExportXLSX),
			zap.Int("count", len(bundle.Overrides)),
		)
		return nil
	},
}

// writeOverridesXLSX writes the review spreadsheet: one row per override plus
// a flattened mapping sheet.
func writeOverridesXLSX(bundle *override.ExportBundle, path string) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Overrides")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"OSM Name", "Original District", "New District", "Reason"} {
		header.AddCell().Value = h
	}
	for _, o := range bundle.Overrides {
		row := sheet.AddRow()
		row.AddCell().Value = o.RawName
		if o.PreviousDistrict != nil {
			row.AddCell().Value = string(*o.PreviousDistrict)
		} else {
			row.AddCell().Value = ""
		}
		row.AddCell().Value = string(o.CorrectedDistrict)
		row.AddCell().Value = o.Reason
	}

	flat, err := file.AddSheet("Mapping")
	if err != nil {
		return eris.Wrap(err, "export: add mapping sheet")
	}
	flatHeader := flat.AddRow()
	flatHeader.AddCell().Value = "OSM Name"
	flatHeader.AddCell().Value = "District"
	for _, o := range bundle.Overrides {
		row := flat.AddRow()
		row.AddCell().Value = o.RawName
		row.AddCell().Value = string(bundle.Flattened[o.RawName])
	}

	return eris.Wrap(file.Save(path), "export: save xlsx")
}

func init() {
	overridesApplyCmd.Flags().StringVar(&overrideApplyName, "name", "", "raw OSM place name (required)")
	overridesApplyCmd.Flags().StringVar(&overrideApplyDistrict, "district", "", "corrected canonical district (required)")
	overridesApplyCmd.Flags().StringVar(&overrideApplyReason, "reason", "", "why the correction is needed")
	_ = overridesApplyCmd.MarkFlagRequired("name")
	_ = overridesApplyCmd.MarkFlagRequired("district")

	overridesExportCmd.Flags().StringVar(&overrideExportXLSX, "xlsx", "", "write an .xlsx review file instead of JSON to stdout")

	overridesCmd.AddCommand(overridesListCmd, overridesApplyCmd, overridesRemoveCmd, overridesExportCmd)
	rootCmd.AddCommand(overridesCmd)
}

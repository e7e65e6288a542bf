package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/decksmith/internal/asset"
	"github.com/MrWong99/decksmith/internal/deckcheck"
	"github.com/MrWong99/decksmith/internal/generate"
	"github.com/MrWong99/decksmith/internal/taxonomy"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration, taxonomy and asset catalog",
		Long: `Load the configuration, the taxonomy and the asset catalog, list every
intent with its slots, template coverage and how its generated deck is
checked, and fail when an intent has no deck template.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			tax := taxonomy.Default()
			source := "built-in"
			if cfg.Taxonomy.Path != "" {
				if tax, err = taxonomy.LoadFile(cfg.Taxonomy.Path); err != nil {
					return err
				}
				source = cfg.Taxonomy.Path
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taxonomy %s (version %q, %s units, %d intents)\n\n",
				source, tax.Version(), tax.UnitSystem(), tax.Len())

			missing := generate.Builtin().CheckCoverage(tax)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INTENT\tSLOTS\tTEMPLATE\tDECK CHECK")
			for _, def := range tax.Intents() {
				covered := "yes"
				if slices.Contains(missing, def.ID) {
					covered = "MISSING"
				}
				checked := "intent"
				if !deckcheck.Catalogued(def.ID) {
					checked = "slot values"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.ID, slotSummary(def), covered, checked)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if cfg.Assets.Catalog != "" {
				cf, err := asset.LoadCatalogFile(cfg.Assets.Catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\ncatalog %s (field %q, %d assets)\n", cfg.Assets.Catalog, cf.Field, len(cf.Assets))
			}

			if len(missing) > 0 {
				return fmt.Errorf("check: intents without a deck template: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// slotSummary lists slot names; optional slots are bracketed.
func slotSummary(def taxonomy.IntentDefinition) string {
	if len(def.Slots) == 0 {
		return "-"
	}
	parts := make([]string, len(def.Slots))
	for i, s := range def.Slots {
		if s.Required {
			parts[i] = s.Name
		} else {
			parts[i] = "[" + s.Name + "]"
		}
	}
	return strings.Join(parts, " ")
}

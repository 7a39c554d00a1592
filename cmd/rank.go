package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/atlas-supply/risk-cli/internal/model"
	"github.com/atlas-supply/risk-cli/internal/pipeline"
)

var (
	rankDCCity string
	rankFormat string
	rankOutput string
	rankAll    bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank suppliers against a distribution center",
	Long:  "Scores every supplier's failure probability and distance to the distribution center and prints the best supplier per product. Missing artifacts trigger a pipeline run first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		ranking, err := env.Pipeline.BestSuppliers(ctx, rankDCCity)
		if err != nil {
			return err
		}

		out := io.Writer(os.Stdout)
		if rankOutput != "" {
			f, err := os.Create(rankOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", rankOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return writeRanking(out, ranking, rankFormat, rankAll)
	},
}

// writeRanking renders a ranking in the requested format.
func writeRanking(out io.Writer, ranking *pipeline.Ranking, format string, all bool) error {
	rows := ranking.BestSuppliers
	if all {
		rows = ranking.AllSuppliers
	}

	switch format {
	case "table":
		if ranking.DC == nil {
			fmt.Fprintln(out, "No usable distribution center; nothing to rank.")
			return nil
		}
		fmt.Fprintf(out, "Distribution center: %s (%.2f, %.2f)\n\n",
			ranking.DC.City, ranking.DC.Latitude, ranking.DC.Longitude)
		formatRankingTable(out, rows)
		return nil

	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranking)

	case "csv":
		data, err := csvutil.Marshal(rankingRows(rows))
		if err != nil {
			return eris.Wrap(err, "marshal ranking csv")
		}
		_, err = out.Write(data)
		return err

	default:
		return eris.Errorf("unknown format %q (want table, json, or csv)", format)
	}
}

// rankingRow flattens a scored supplier for CSV export.
type rankingRow struct {
	Product       string  `csv:"Product"`
	SupplierID    string  `csv:"SupplierID"`
	SupplierName  string  `csv:"SupplierName"`
	City          string  `csv:"City"`
	Country       string  `csv:"Country"`
	FailureProb   float64 `csv:"FailureProb"`
	DistanceKM    float64 `csv:"DistanceKM"`
	CombinedScore float64 `csv:"CombinedScore"`
}

func rankingRows(rows []model.SupplierRecord) []rankingRow {
	out := make([]rankingRow, len(rows))
	for i, r := range rows {
		out[i] = rankingRow{
			Product:       r.Product,
			SupplierID:    r.SupplierID,
			SupplierName:  r.SupplierName,
			City:          r.City,
			Country:       r.Country,
			FailureProb:   r.FailureProb,
			DistanceKM:    r.DistanceKM,
			CombinedScore: r.CombinedScore,
		}
	}
	return out
}

func formatRankingTable(out io.Writer, rows []model.SupplierRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRODUCT\tSUPPLIER\tCITY\tFAIL_PROB\tDIST_KM\tSCORE")
	_, _ = fmt.Fprintln(w, "-------\t--------\t----\t---------\t-------\t-----")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.0f\t%.4f\n",
			r.Product, r.SupplierName, r.City, r.FailureProb, r.DistanceKM, r.CombinedScore)
	}
	_ = w.Flush()
}

func init() {
	rankCmd.Flags().StringVar(&rankDCCity, "dc-city", "", "distribution center city (default: auto-select from warehouses)")
	rankCmd.Flags().StringVar(&rankFormat, "format", "table", "output format (table, json, csv)")
	rankCmd.Flags().StringVar(&rankOutput, "output", "", "write output to file instead of stdout")
	rankCmd.Flags().BoolVar(&rankAll, "all", false, "include every scored supplier, not just the best per product")
	rootCmd.AddCommand(rankCmd)
}

package cmd

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ballzy/adgen"
	"github.com/ballzy/adgen/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "scan the full feeds for Estonian text leaking into other markets",
	Long:  `scan re-reads the full, unfiltered feed of every non-Estonian market (fetching any feed not already cached) and writes contamination_report.csv. The report is written even when nothing was flagged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		g, err := adgen.New(
			adgen.WithConfig(cfg),
			adgen.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		hits, err := g.Scan(cmd.Context())
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ no contamination found")
			return nil
		}
		red := color.New(color.FgRed)
		red.Fprintf(cmd.OutOrStdout(), "✗ %d contaminated fields:\n", len(hits))
		for _, h := range hits {
			cmd.Printf("  %s %s %s: %q\n", h.Market, h.ProductID, h.Field, h.Marker)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

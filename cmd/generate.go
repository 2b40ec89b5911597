package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/ballzy/adgen"
	"github.com/ballzy/adgen/config"
	"github.com/ballzy/adgen/handler/dot"
)

var (
	limit   int
	markets []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "generate creatives and feeds for every configured market",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("limit") {
			cfg.MaxProducts = limit
		}
		if len(markets) > 0 {
			cfg.Markets = selectMarkets(cfg.Markets, markets)
			if len(cfg.Markets) == 0 {
				return fmt.Errorf("no configured market matches %s", strings.Join(markets, ","))
			}
		}

		logger, cleanup, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		g, err := adgen.New(
			adgen.WithConfig(cfg),
			adgen.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		results, err := g.Run(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				cmd.PrintErrf("market %s skipped: %v\n", r.Market, r.Err)
			}
		}
		return nil
	},
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})), func() {}, nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(filepath.Join(cfg.OutputDir, "adgen.log"))
	if err != nil {
		return nil, nil, err
	}
	dotHandler, err := dot.New(slog.NewTextHandler(os.Stdout, nil))
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	logger := slog.New(slogmulti.Fanout(
		dotHandler,
		slog.NewJSONHandler(f, nil),
	))
	return logger, func() { _ = f.Close() }, nil
}

func selectMarkets(configured []config.Market, codes []string) []config.Market {
	var selected []config.Market
	for _, m := range configured {
		if slices.ContainsFunc(codes, func(c string) bool { return strings.EqualFold(c, m.Code) }) {
			selected = append(selected, m)
		}
	}
	return selected
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVarP(&limit, "limit", "l", 0, "cap on accepted products per run (0 = use config)")
	generateCmd.Flags().StringSliceVarP(&markets, "market", "m", nil, "market code to process (repeatable, default all)")
}

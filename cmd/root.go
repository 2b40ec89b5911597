package cmd

import (
	"fmt"
	"os"

	"github.com/k1LoW/errors"
	"github.com/spf13/cobra"

	"github.com/ballzy/adgen/version"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "adgen",
	Short:        "adgen generates ad creatives and derivative feeds from product XML feeds",
	Long:         `adgen downloads the per-market product feeds, composites product photos and prices onto the ad template, and emits the Meta, TikTok and Google feeds pointing at the generated creatives.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (rev:%s)", version.Version, version.Revision),
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if verbose {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", errors.StackTraces(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default adgen.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")
}

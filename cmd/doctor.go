package cmd

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/ballzy/adgen/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adgen configuration and assets",
	Long:  `Check adgen configuration and assets to ensure a run will not degrade silently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)

		allOK := true

		cmd.Print("🔍 Checking configuration ... ")
		cfg, err := config.Load(configPath)
		if err != nil {
			red.Println("✗ INVALID")
			cmd.Printf("   %v\n", err)
			return nil
		}
		green.Println("✓ OK")
		cmd.Printf("   %d markets, %d slots, cap %d\n", len(cfg.Markets), len(cfg.Layout.Slots), cfg.MaxProducts)

		cmd.Print("🔍 Checking template asset ... ")
		if _, err := os.Stat(cfg.Layout.TemplatePath); err != nil {
			yellow.Println("⚠ NOT FOUND")
			cmd.Printf("   Expected at: %s (a blank canvas will be used)\n", cfg.Layout.TemplatePath)
		} else {
			green.Println("✓ OK")
		}

		cmd.Print("🔍 Checking font asset ... ")
		if err := checkFont(cfg.Layout.FontPath, cfg.Layout.Price.FontSize); err != nil {
			yellow.Println("⚠ NOT LOADABLE")
			cmd.Printf("   %v (the builtin face will be used, size fidelity is lost)\n", err)
		} else {
			green.Println("✓ OK")
		}

		cmd.Print("🔍 Checking feed URLs ... ")
		badURLs := 0
		for _, m := range cfg.Markets {
			if _, err := url.ParseRequestURI(m.FeedURL); err != nil {
				if badURLs == 0 {
					red.Println("✗ INVALID")
				}
				cmd.Printf("   market %s: %v\n", m.Code, err)
				badURLs++
			}
		}
		if badURLs == 0 {
			green.Println("✓ OK")
		} else {
			allOK = false
		}

		cmd.Print("🔍 Checking output directory ... ")
		if err := checkWritable(cfg.OutputDir); err != nil {
			red.Println("✗ NOT WRITABLE")
			cmd.Printf("   %v\n", err)
			allOK = false
		} else {
			green.Println("✓ OK")
			cmd.Printf("   Output directory: %s\n", cfg.OutputDir)
		}

		cmd.Println()
		if allOK {
			green.Println("✅ adgen is ready to run")
		} else {
			red.Println("❌ fix the issues above before running adgen generate")
		}
		return nil
	},
}

func checkFont(path string, size float64) error {
	dc := gg.NewContext(1, 1)
	return dc.LoadFontFace(path, size)
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".adgen_doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config is the full, immutable runtime configuration. It is built once by
// Load and passed by reference into every component.
type Config struct {
	OutputDir       string   `yaml:"output_dir"`
	BaseURL         string   `yaml:"base_url"`
	MaxProducts     int      `yaml:"max_products"`
	FeedTimeoutSec  int      `yaml:"feed_timeout_sec"`
	ImageTimeoutSec int      `yaml:"image_timeout_sec"`
	FeedRetryMax    int      `yaml:"feed_retry_max"`
	Markets         []Market `yaml:"markets"`
	Filters         Filters  `yaml:"filters"`
	Layout          Layout   `yaml:"layout"`
}

// Market is one configured country feed source.
type Market struct {
	Code      string `yaml:"code"`
	FeedURL   string `yaml:"feed_url"`
	Currency  string `yaml:"currency"`
	Language  string `yaml:"language"`
	GoogleCSV bool   `yaml:"google_csv"`
}

// Filters holds the product inclusion predicates. When Enabled is false only
// the structural checks (id, price, image) apply.
type Filters struct {
	Enabled    bool     `yaml:"enabled"`
	Categories []string `yaml:"categories"`
	Label      string   `yaml:"label"`
}

// Layout describes the creative canvas: background template, photo slots and
// the price block. Shared read-only by every render within a run.
type Layout struct {
	CanvasW      int        `yaml:"canvas_w"`
	CanvasH      int        `yaml:"canvas_h"`
	TemplatePath string     `yaml:"template_path"`
	FontPath     string     `yaml:"font_path"`
	Slots        []Slot     `yaml:"slots"`
	Price        PriceBlock `yaml:"price"`
}

// Slot is one rectangular region of the canvas a product photo is
// cover-fitted into. Anchor controls the vertical crop: 0 keeps the top of
// the source image, 1 the bottom, 0.5 centers.
type Slot struct {
	X      int     `yaml:"x"`
	Y      int     `yaml:"y"`
	W      int     `yaml:"w"`
	H      int     `yaml:"h"`
	Anchor float64 `yaml:"anchor"`
}

// PriceBlock positions the rendered price text and its optional outline box.
type PriceBlock struct {
	X         int       `yaml:"x"`
	Y         int       `yaml:"y"`
	FontSize  float64   `yaml:"font_size"`
	Color     string    `yaml:"color"`
	SaleColor string    `yaml:"sale_color"`
	Box       *PriceBox `yaml:"box,omitempty"`
}

// PriceBox is a decorative unfilled rectangle drawn behind the price text.
type PriceBox struct {
	X         int     `yaml:"x"`
	Y         int     `yaml:"y"`
	W         int     `yaml:"w"`
	H         int     `yaml:"h"`
	LineWidth float64 `yaml:"line_width"`
}

// currencySymbols maps ISO currency codes to the symbol appended to
// formatted prices. Unknown codes pass through unchanged.
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"PLN": "zł",
	"SEK": "kr",
}

// Symbol returns the display symbol for the market's currency code.
func (m Market) Symbol() string {
	if s, ok := currencySymbols[m.Currency]; ok {
		return s
	}
	return m.Currency
}

// Default returns the built-in configuration: the 1080x1080 three-slot
// Ballzy layout and the four Baltic/Nordic markets.
func Default() *Config {
	return &Config{
		OutputDir:       "generated_ads",
		BaseURL:         "https://ads.ballzy.eu/creatives",
		MaxProducts:     50,
		FeedTimeoutSec:  30,
		ImageTimeoutSec: 10,
		FeedRetryMax:    2,
		Markets: []Market{
			{Code: "EE", FeedURL: "https://backend.ballzy.eu/et/amfeed/feed/download?id=102&file=cropink_et.xml", Currency: "EUR", Language: "et", GoogleCSV: true},
			{Code: "LV", FeedURL: "https://backend.ballzy.eu/lv/amfeed/feed/download?id=103&file=cropink_lv.xml", Currency: "EUR", Language: "lv", GoogleCSV: true},
			{Code: "LT", FeedURL: "https://backend.ballzy.eu/lt/amfeed/feed/download?id=104&file=cropink_lt.xml", Currency: "EUR", Language: "lt", GoogleCSV: false},
			{Code: "FI", FeedURL: "https://backend.ballzy.eu/fi/amfeed/feed/download?id=105&file=cropink_fi.xml", Currency: "EUR", Language: "fi", GoogleCSV: false},
		},
		Filters: Filters{
			Enabled:    true,
			Categories: []string{"street shoes", "boots"},
			Label:      "cropink",
		},
		Layout: Layout{
			CanvasW:      1080,
			CanvasH:      1080,
			TemplatePath: "assets/ballzy_template.png",
			FontPath:     "assets/fonts/BallzyFont-Bold.ttf",
			Slots: []Slot{
				{X: 50, Y: 200, W: 500, H: 500, Anchor: 0.5},
				{X: 600, Y: 350, W: 450, H: 350, Anchor: 0.6},
				{X: 50, Y: 750, W: 600, H: 300, Anchor: 0.8},
			},
			Price: PriceBlock{
				X:         840,
				Y:         880,
				FontSize:  80,
				Color:     "#0055FF",
				SaleColor: "#8B00FF",
				Box:       &PriceBox{X: 700, Y: 820, W: 280, H: 120, LineWidth: 4},
			},
		},
	}
}

// Load reads the configuration from path. An empty path tries adgen.yml then
// adgen.yaml in the working directory; if neither exists the defaults are
// returned. Environment variables (optionally from a .env file) override the
// file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	paths := []string{path}
	if path == "" {
		paths = []string{"adgen.yml", "adgen.yaml"}
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			if path != "" {
				return nil, fmt.Errorf("failed to read config %s: %w", p, err)
			}
			continue
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", p, err)
		}
		break
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADGEN_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("ADGEN_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ADGEN_MAX_PRODUCTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxProducts = n
		}
	}
}

// Validate checks the structural invariants of the configuration.
func (c *Config) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("config: at least one market is required")
	}
	for _, m := range c.Markets {
		if m.Code == "" {
			return fmt.Errorf("config: market without code")
		}
		if _, err := url.ParseRequestURI(m.FeedURL); err != nil {
			return fmt.Errorf("config: market %s: invalid feed_url %q: %w", m.Code, m.FeedURL, err)
		}
	}
	if n := len(c.Layout.Slots); n < 1 || n > 3 {
		return fmt.Errorf("config: layout must declare between 1 and 3 slots, got %d", n)
	}
	for i, s := range c.Layout.Slots {
		if s.W <= 0 || s.H <= 0 {
			return fmt.Errorf("config: slot %d has non-positive size %dx%d", i, s.W, s.H)
		}
		if s.Anchor < 0 || s.Anchor > 1 {
			return fmt.Errorf("config: slot %d anchor %f out of range [0,1]", i, s.Anchor)
		}
	}
	if c.MaxProducts < 0 {
		return fmt.Errorf("config: max_products must not be negative")
	}
	return nil
}

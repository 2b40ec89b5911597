package adgen

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
)

// Generator runs the whole pipeline: feed download, product extraction,
// creative rendering and feed emission, one market at a time.
type Generator struct {
	cfg         *config.Config
	logger      *slog.Logger
	feedClient  *http.Client
	imageClient *http.Client
}

// MarketResult summarizes one market's run.
type MarketResult struct {
	Market       string
	Accepted     int
	Rendered     int
	SlotFailures int
	Files        []string
	Err          error
}

type Option func(*Generator) error

func WithConfig(cfg *config.Config) Option {
	return func(g *Generator) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		g.cfg = cfg
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		g.logger = logger
		return nil
	}
}

// WithFeedHTTPClient overrides the feed download client.
func WithFeedHTTPClient(client *http.Client) Option {
	return func(g *Generator) error {
		g.feedClient = client
		return nil
	}
}

// WithImageHTTPClient overrides the image download client.
func WithImageHTTPClient(client *http.Client) Option {
	return func(g *Generator) error {
		g.imageClient = client
		return nil
	}
}

func New(opts ...Option) (_ *Generator, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	g := &Generator{}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.cfg == nil {
		g.cfg = config.Default()
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if g.feedClient == nil {
		g.feedClient = newFeedClient(g.cfg, g.logger)
	}
	if g.imageClient == nil {
		g.imageClient = &http.Client{Timeout: time.Duration(g.cfg.ImageTimeoutSec) * time.Second}
	}
	return g, nil
}

// Run processes every configured market in order. A market that fails to
// fetch or parse is skipped; the others still run. The error return is
// non-nil only when every market failed.
func (g *Generator) Run(ctx context.Context) (_ []MarketResult, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	var results []MarketResult
	failed := 0
	for _, market := range g.cfg.Markets {
		res := g.runMarket(ctx, market)
		if res.Err != nil {
			failed++
			g.logger.Error("failed to process market", slog.String("market", market.Code), slog.String("error", res.Err.Error()))
		}
		results = append(results, res)
		g.logger.Info("market completed",
			slog.String("market", market.Code),
			slog.Int("accepted", res.Accepted),
			slog.Int("rendered", res.Rendered),
			slog.Int("slot_failures", res.SlotFailures),
		)
	}
	if failed == len(g.cfg.Markets) {
		return results, fmt.Errorf("all %d markets failed", failed)
	}
	return results, nil
}

func (g *Generator) runMarket(ctx context.Context, market config.Market) MarketResult {
	res := MarketResult{Market: market.Code}

	g.logger.Info("fetching feed", slog.String("market", market.Code), slog.String("url", market.FeedURL))
	raw, err := g.fetchFeed(ctx, market)
	if err != nil {
		res.Err = err
		return res
	}
	doc, err := parseFeed(raw)
	if err != nil {
		res.Err = fmt.Errorf("market %s: %w", market.Code, err)
		return res
	}

	products := extractProducts(doc, market, g.cfg.Filters, g.cfg.MaxProducts)
	res.Accepted = len(products)
	if len(products) == 0 {
		g.logger.Info("no products accepted", slog.String("market", market.Code))
		return res
	}

	comp := newCompositor(g.cfg, g.imageClient, g.logger)
	var rendered []*Product
	for _, p := range products {
		path, slotErrs, err := comp.Render(ctx, market, p)
		res.SlotFailures += len(slotErrs)
		if err != nil {
			g.logger.Warn("failed to render creative", slog.String("id", p.ID), slog.String("error", err.Error()))
			continue
		}
		p.CreativeFile = filepath.Base(path)
		rendered = append(rendered, p)
		res.Files = append(res.Files, path)
		g.logger.Info("rendered creative", slog.String("id", p.ID), slog.String("path", path), slog.String("price", p.DisplayPrice()))
	}
	res.Rendered = len(rendered)
	if len(rendered) == 0 {
		return res
	}

	code := strings.ToLower(market.Code)
	emitters := []struct {
		name    string
		path    string
		enabled bool
		emit    func(path string) error
	}{
		{
			name:    "meta",
			path:    filepath.Join(g.cfg.OutputDir, fmt.Sprintf("ballzy_%s_ad_feed.xml", code)),
			enabled: true,
			emit: func(path string) error {
				return emitMetaFeed(rendered, market, g.cfg.BaseURL, path)
			},
		},
		{
			name:    "tiktok",
			path:    filepath.Join(g.cfg.OutputDir, fmt.Sprintf("ballzy_tiktok_%s_ad_feed.xml", code)),
			enabled: true,
			emit: func(path string) error {
				return emitTikTokFeed(rendered, market, g.cfg.BaseURL, path)
			},
		},
		{
			name:    "google",
			path:    filepath.Join(g.cfg.OutputDir, fmt.Sprintf("ballzy_%s_google_feed.csv", code)),
			enabled: market.GoogleCSV,
			emit: func(path string) error {
				return emitGoogleCSV(rendered, market, g.cfg.BaseURL, path)
			},
		},
	}
	for _, e := range emitters {
		if !e.enabled {
			continue
		}
		if err := e.emit(e.path); err != nil {
			g.logger.Warn("failed to emit feed", slog.String("market", market.Code), slog.String("emitter", e.name), slog.String("error", err.Error()))
			continue
		}
		res.Files = append(res.Files, e.path)
		g.logger.Info("emitted feed", slog.String("market", market.Code), slog.String("emitter", e.name), slog.String("path", e.path))
	}
	return res
}

// Scan runs the contamination path: the full cached feed of every
// non-Estonian market is checked for Estonian text markers and the report is
// written, even when empty. Markets whose feed was not cached by a previous
// Run are fetched here.
func (g *Generator) Scan(ctx context.Context) (_ []ContaminationHit, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	var hits []ContaminationHit
	for _, market := range g.cfg.Markets {
		if market.Language == "et" {
			continue
		}
		raw, rerr := os.ReadFile(g.feedCachePath(market))
		if rerr != nil {
			g.logger.Info("fetching feed", slog.String("market", market.Code), slog.String("url", market.FeedURL))
			raw, rerr = g.fetchFeed(ctx, market)
			if rerr != nil {
				g.logger.Error("failed to process market", slog.String("market", market.Code), slog.String("error", rerr.Error()))
				continue
			}
		}
		doc, perr := parseFeed(raw)
		if perr != nil {
			g.logger.Error("failed to process market", slog.String("market", market.Code), slog.String("error", perr.Error()))
			continue
		}
		hits = append(hits, scanFeed(doc, market)...)
	}
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(g.cfg.OutputDir, "contamination_report.csv")
	if err := writeContaminationReport(path, hits); err != nil {
		return nil, err
	}
	g.logger.Info("contamination report written", slog.String("path", path), slog.Int("hits", len(hits)))
	return hits, nil
}

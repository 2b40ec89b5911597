package adgen

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ballzy/adgen/config"
)

// pipelineServer serves a small feed and solid images for the end-to-end
// orchestrator tests.
func pipelineServer(t *testing.T, items ...string) *httptest.Server {
	t.Helper()
	png := testPNG(t, 40, 40, color.NRGBA{R: 10, G: 120, B: 230, A: 255})
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		// IMGBASE placeholders point the item image links back at this server.
		body := strings.ReplaceAll(testFeedXML(items...), "IMGBASE", srv.URL)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pipelineItem(id, imgBase string) string {
	return `
<g:id>` + id + `</g:id>
<g:title>Nike Air Max</g:title>
<g:description>Vaata lähemalt ballzy.eu. Head kingad</g:description>
<g:link>https://ballzy.eu/nike-air-max</g:link>
<g:price>120.00 EUR</g:price>
<g:image_link>` + imgBase + `/img/` + id + `-main.png</g:image_link>
<g:additional_image_link>` + imgBase + `/img/` + id + `-side.png</g:additional_image_link>
<g:google_product_category>Street Shoes</g:google_product_category>
<g:custom_label_0>cropink</g:custom_label_0>`
}

func pipelineConfig(t *testing.T, markets ...config.Market) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.BaseURL = "https://ads.example.com/creatives"
	cfg.MaxProducts = 10
	cfg.FeedRetryMax = 0
	cfg.FeedTimeoutSec = 5
	cfg.ImageTimeoutSec = 5
	cfg.Markets = markets
	cfg.Layout.TemplatePath = filepath.Join(cfg.OutputDir, "missing.png")
	cfg.Layout.FontPath = filepath.Join(cfg.OutputDir, "missing.ttf")
	cfg.Layout.CanvasW = 200
	cfg.Layout.CanvasH = 200
	cfg.Layout.Slots = []config.Slot{{X: 10, Y: 10, W: 80, H: 80, Anchor: 0.5}}
	return cfg
}

func TestGeneratorRun_EndToEnd(t *testing.T) {
	srv := pipelineServer(t, pipelineItem("sku-1", "IMGBASE"), pipelineItem("sku-2", "IMGBASE"))
	cfg := pipelineConfig(t, config.Market{
		Code: "EE", FeedURL: srv.URL + "/feed.xml", Currency: "EUR", Language: "et", GoogleCSV: true,
	})

	g, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	results, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("market error = %v", res.Err)
	}
	if res.Accepted != 2 || res.Rendered != 2 {
		t.Errorf("accepted/rendered = %d/%d, want 2/2", res.Accepted, res.Rendered)
	}

	for _, want := range []string{
		filepath.Join("ee", "ad_sku-1.jpg"),
		filepath.Join("ee", "ad_sku-2.jpg"),
		"ballzy_ee_ad_feed.xml",
		"ballzy_tiktok_ee_ad_feed.xml",
		"ballzy_ee_google_feed.csv",
		filepath.Join("feeds", "ee_feed.xml"),
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, want)); err != nil {
			t.Errorf("expected output file %s: %v", want, err)
		}
	}
}

func TestGeneratorRun_GoogleCSVSkippedPerMarket(t *testing.T) {
	srv := pipelineServer(t, pipelineItem("sku-1", "IMGBASE"))
	cfg := pipelineConfig(t, config.Market{
		Code: "FI", FeedURL: srv.URL + "/feed.xml", Currency: "EUR", Language: "fi", GoogleCSV: false,
	})

	g, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "ballzy_fi_google_feed.csv")); !os.IsNotExist(err) {
		t.Error("google CSV emitted for a market that disables it")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "ballzy_fi_ad_feed.xml")); err != nil {
		t.Errorf("meta feed missing: %v", err)
	}
}

func TestGeneratorRun_UnreachableMarketIsSkipped(t *testing.T) {
	srv := pipelineServer(t, pipelineItem("sku-1", "IMGBASE"))
	cfg := pipelineConfig(t,
		config.Market{Code: "LV", FeedURL: "http://127.0.0.1:1/feed.xml", Currency: "EUR", Language: "lv"},
		config.Market{Code: "EE", FeedURL: srv.URL + "/feed.xml", Currency: "EUR", Language: "et"},
	)

	g, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	results, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v (one healthy market remains)", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Err == nil {
		t.Error("unreachable market must report an error")
	}
	if len(results[0].Files) != 0 {
		t.Errorf("unreachable market produced files: %v", results[0].Files)
	}
	if results[1].Err != nil || results[1].Rendered != 1 {
		t.Errorf("healthy market result = %+v, want 1 rendered", results[1])
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), "_lv_") {
			t.Errorf("unexpected output for failed market: %s", e.Name())
		}
	}
}

func TestGeneratorRun_AllMarketsFailed(t *testing.T) {
	cfg := pipelineConfig(t, config.Market{
		Code: "LV", FeedURL: "http://127.0.0.1:1/feed.xml", Currency: "EUR", Language: "lv",
	})
	g, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want error when every market fails")
	}
}

func TestGeneratorScan_WritesReport(t *testing.T) {
	srv := pipelineServer(t, pipelineItem("sku-1", "IMGBASE"))
	cfg := pipelineConfig(t,
		config.Market{Code: "EE", FeedURL: srv.URL + "/feed.xml", Currency: "EUR", Language: "et"},
		config.Market{Code: "LV", FeedURL: srv.URL + "/feed.xml", Currency: "EUR", Language: "lv"},
	)

	g, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	hits, err := g.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	// The LV feed carries Estonian copy ("Vaata lähemalt", "kingad"); the EE
	// feed is skipped by language.
	if len(hits) == 0 {
		t.Fatal("Scan() found nothing, want Estonian markers in the LV feed")
	}
	for _, h := range hits {
		if h.Market != "LV" {
			t.Errorf("hit for market %s, want LV only", h.Market)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "contamination_report.csv")); err != nil {
		t.Errorf("report missing: %v", err)
	}
}

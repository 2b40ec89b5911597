package adgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
	"github.com/ballzy/adgen/version"
)

var _ retryablehttp.LeveledLogger = (*slog.Logger)(nil)

var userAgent = "ballzy-adgen/" + version.Version + " (+https://github.com/ballzy/adgen)"

// newFeedClient builds the HTTP client used for feed downloads. Image
// downloads use a plain client; per-slot image failures are swallowed, so
// retrying them would only slow the run down.
func newFeedClient(cfg *config.Config, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.FeedTimeoutSec) * time.Second,
	}
	retryClient.RetryMax = cfg.FeedRetryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = logger
	return retryClient.StandardClient()
}

// fetchFeed downloads the market's feed and caches the raw bytes under the
// output directory so the contamination scan can re-read the full document
// later. Any failure here abandons the whole market.
func (g *Generator) fetchFeed(ctx context.Context, market config.Market) (_ []byte, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, market.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request for %s: %w", market.Code, err)
	}
	req.Header.Set("User-Agent", userAgent)
	res, err := g.feedClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download feed for %s: %w", market.Code, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download feed for %s: status code %d", market.Code, res.StatusCode)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body for %s: %w", market.Code, err)
	}
	if err := g.cacheFeed(market, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (g *Generator) cacheFeed(market config.Market, b []byte) error {
	path := g.feedCachePath(market)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create feed cache dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to cache feed for %s: %w", market.Code, err)
	}
	return nil
}

func (g *Generator) feedCachePath(market config.Market) string {
	return filepath.Join(g.cfg.OutputDir, "feeds", strings.ToLower(market.Code)+"_feed.xml")
}

// parseFeed parses raw feed bytes into an element tree. Malformed XML is a
// market-fatal error.
func parseFeed(b []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("failed to parse feed XML: %w", err)
	}
	return doc, nil
}

// feedItems returns all item elements of the document, wherever they are
// nested, in document order.
func feedItems(doc *etree.Document) []*etree.Element {
	return doc.FindElements("//item")
}

// fieldAliases maps canonical field names to the tag spellings tried, in
// order, when reading a feed item. First match wins. The feeds drift between
// namespaced and bare spellings across markets.
var fieldAliases = map[string][]string{
	"id":                        {"g:id", "id"},
	"title":                     {"g:title", "title"},
	"description":               {"g:description", "description"},
	"link":                      {"g:link", "link"},
	"price":                     {"g:price", "price"},
	"sale_price":                {"g:sale_price", "sale_price"},
	"sale_price_effective_date": {"g:sale_price_effective_date", "sale_price_effective_date"},
	"image_link":                {"g:image_link", "image_link"},
	"additional_image_link":     {"g:additional_image_link", "additional_image_link"},
	"category":                  {"g:google_product_category", "google_product_category", "g:product_type", "product_type"},
	"google_product_category":   {"g:google_product_category", "google_product_category"},
	"product_type":              {"g:product_type", "product_type"},
	"availability":              {"g:availability", "availability"},
	"condition":                 {"g:condition", "condition"},
	"brand":                     {"g:brand", "brand"},
	"item_group_id":             {"g:item_group_id", "item_group_id"},
	"color":                     {"g:color", "color"},
	"gender":                    {"g:gender", "gender"},
	"size":                      {"g:size", "size"},
	"custom_label_0":            {"g:custom_label_0", "custom_label_0"},
	"custom_label_1":            {"g:custom_label_1", "custom_label_1"},
	"custom_label_2":            {"g:custom_label_2", "custom_label_2"},
	"custom_label_3":            {"g:custom_label_3", "custom_label_3"},
	"custom_label_4":            {"g:custom_label_4", "custom_label_4"},
}

// findField returns the first child element of item matching one of the
// canonical field's tag spellings, or nil.
func findField(item *etree.Element, canonical string) *etree.Element {
	variants, ok := fieldAliases[canonical]
	if !ok {
		variants = []string{"g:" + canonical, canonical}
	}
	for _, v := range variants {
		if el := item.SelectElement(v); el != nil {
			return el
		}
	}
	return nil
}

// fieldText returns the trimmed text of a canonical field, or "".
func fieldText(item *etree.Element, canonical string) string {
	el := findField(item, canonical)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// additionalImageLinks returns all additional-image elements in document
// order, regardless of spelling.
func additionalImageLinks(item *etree.Element) []*etree.Element {
	var els []*etree.Element
	for _, child := range item.ChildElements() {
		if child.Tag == "additional_image_link" {
			els = append(els, child)
		}
	}
	return els
}

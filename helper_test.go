package adgen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/beevik/etree"

	"github.com/ballzy/adgen/config"
)

func testMarket() config.Market {
	return config.Market{
		Code:      "EE",
		FeedURL:   "https://example.com/feed_et.xml",
		Currency:  "EUR",
		Language:  "et",
		GoogleCSV: true,
	}
}

func testFilters() config.Filters {
	return config.Filters{
		Enabled:    true,
		Categories: []string{"street shoes", "boots"},
		Label:      "cropink",
	}
}

func testFeedXML(items ...string) string {
	body := ""
	for _, item := range items {
		body += "<item>" + item + "</item>\n"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>test feed</title>
    %s
  </channel>
</rss>`, body)
}

// fullItem is a feed item that passes every filter.
func fullItem(id string) string {
	return fmt.Sprintf(`
<g:id>%s</g:id>
<g:title>Nike Air Max</g:title>
<g:description>Mugavad kingad. Vaata lähemalt ballzy.eu.</g:description>
<g:link>https://ballzy.eu/nike-air-max</g:link>
<g:price>120.00 EUR</g:price>
<g:image_link>https://img.example.com/%s-main.jpg</g:image_link>
<g:additional_image_link>https://img.example.com/%s-side.jpg</g:additional_image_link>
<g:brand>Nike</g:brand>
<g:color>white</g:color>
<g:google_product_category>Apparel &amp; Accessories &gt; Shoes &gt; Street Shoes</g:google_product_category>
<g:custom_label_0>cropink</g:custom_label_0>`, id, id, id)
}

func mustParseFeed(t *testing.T, xml string) *etree.Document {
	t.Helper()
	doc, err := parseFeed([]byte(xml))
	if err != nil {
		t.Fatalf("parseFeed() error = %v", err)
	}
	return doc
}

func testPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// verticalGradient builds an image whose red channel grows with the row
// index, so crop provenance can be read back from pixel values.
func verticalGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(y * 255 / (h - 1))
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

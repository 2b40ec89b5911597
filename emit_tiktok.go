package adgen

import (
	"fmt"
	"strings"

	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
)

// tiktokFields is the fixed whitelist of fields carried into the TikTok
// feed, in emission order. Fields absent or blank in the source item are
// omitted.
var tiktokFields = []string{
	"id",
	"title",
	"description",
	"availability",
	"condition",
	"price",
	"link",
	"brand",
	"item_group_id",
	"google_product_category",
	"product_type",
	"sale_price",
	"sale_price_effective_date",
	"color",
	"gender",
	"size",
	"custom_label_0",
	"custom_label_1",
	"custom_label_2",
	"custom_label_3",
	"custom_label_4",
}

// emitTikTokFeed writes the TikTok catalog feed: whitelisted fields only,
// the generated creative as the image link, and the first additional image
// link carried over verbatim.
func emitTikTokFeed(products []*Product, market config.Market, baseURL, path string) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	doc, channel := newFeedDocument(market, "Ballzy TikTok ad feed "+market.Code)
	for _, p := range products {
		item := channel.CreateElement("item")
		for _, name := range tiktokFields {
			if v := p.Field(name); strings.TrimSpace(v) != "" {
				item.CreateElement("g:" + name).SetText(v)
			}
		}
		item.CreateElement("g:image_link").SetText(creativeURL(baseURL, market, p))
		if len(p.ImageURLs) > 1 {
			item.CreateElement("g:additional_image_link").SetText(p.ImageURLs[1])
		}
	}
	if err := writeFeedDocument(doc, path); err != nil {
		return fmt.Errorf("failed to write tiktok feed %s: %w", path, err)
	}
	return nil
}

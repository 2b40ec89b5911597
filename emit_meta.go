package adgen

import (
	"fmt"

	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
)

// emitMetaFeed writes the Meta catalog feed: every original item field is
// carried over in its original order, except the image link, which points at
// the generated creative.
func emitMetaFeed(products []*Product, market config.Market, baseURL, path string) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	doc, channel := newFeedDocument(market, "Ballzy ad feed "+market.Code)
	for _, p := range products {
		item := p.Item()
		if el := findField(item, "image_link"); el != nil {
			el.SetText(creativeURL(baseURL, market, p))
		} else {
			item.CreateElement("g:image_link").SetText(creativeURL(baseURL, market, p))
		}
		channel.AddChild(item)
	}
	if err := writeFeedDocument(doc, path); err != nil {
		return fmt.Errorf("failed to write meta feed %s: %w", path, err)
	}
	return nil
}

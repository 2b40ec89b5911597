package adgen

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/ballzy/adgen/config"
)

// maxAdditionalImages bounds how many additional-image links are carried
// beyond the primary one. Together with the primary link this matches the
// slot count of the default layout.
const maxAdditionalImages = 2

// Product is one accepted feed item. It keeps two views built once during
// extraction: the detached item element (ordered, for faithful passthrough
// re-emission) and keyed access through Field. The element's free-text
// fields are already cleaned, so every consumer sees the same text.
type Product struct {
	ID                 string
	Price              string
	SalePrice          string
	FormattedPrice     string
	FormattedSalePrice string
	ImageURLs          []string
	CreativeFile       string

	item *etree.Element
}

// Field returns the trimmed text of a canonical field of the item, or "".
func (p *Product) Field(canonical string) string {
	return fieldText(p.item, canonical)
}

// Item returns a copy of the underlying item element for re-emission.
func (p *Product) Item() *etree.Element {
	return p.item.Copy()
}

// State reports whether the displayed price comes from a sale price.
func (p *Product) State() PriceState {
	if p.SalePrice != "" {
		return PriceStateSale
	}
	return PriceStateNormal
}

// DisplayPrice is the formatted price rendered onto the creative: the sale
// price when present, the regular price otherwise.
func (p *Product) DisplayPrice() string {
	if p.FormattedSalePrice != "" {
		return p.FormattedSalePrice
	}
	return p.FormattedPrice
}

// ContextualKeywords joins brand, color and the five custom labels into the
// comma-separated keyword list the Google CSV feed expects. Blank fields are
// dropped.
func (p *Product) ContextualKeywords() string {
	fields := []string{
		p.Field("brand"),
		p.Field("color"),
		p.Field("custom_label_0"),
		p.Field("custom_label_1"),
		p.Field("custom_label_2"),
		p.Field("custom_label_3"),
		p.Field("custom_label_4"),
	}
	var keywords []string
	for _, f := range fields {
		if f != "" {
			keywords = append(keywords, f)
		}
	}
	return strings.Join(keywords, ",")
}

// extractProducts walks feed items in document order and returns the
// accepted records. limit caps the number of accepted (post-filter) records;
// 0 means unlimited. Items missing an id, all prices or all image links are
// skipped, as are items failing the configured inclusion filters.
func extractProducts(doc *etree.Document, market config.Market, filters config.Filters, limit int) []*Product {
	var products []*Product
	for _, item := range feedItems(doc) {
		if limit > 0 && len(products) >= limit {
			break
		}
		p := extractProduct(item, market, filters)
		if p == nil {
			continue
		}
		products = append(products, p)
	}
	return products
}

// extractProduct builds a Product from one item, or nil if the item is not
// accepted.
func extractProduct(item *etree.Element, market config.Market, filters config.Filters) *Product {
	id := fieldText(item, "id")
	if id == "" {
		return nil
	}

	price := fieldText(item, "price")
	salePrice := fieldText(item, "sale_price")
	if price == "" && salePrice == "" {
		return nil
	}

	var imageURLs []string
	if u := fieldText(item, "image_link"); u != "" {
		imageURLs = append(imageURLs, u)
	}
	for i, el := range additionalImageLinks(item) {
		if i >= maxAdditionalImages {
			break
		}
		if u := strings.TrimSpace(el.Text()); u != "" {
			imageURLs = append(imageURLs, u)
		}
	}
	if len(imageURLs) == 0 {
		return nil
	}

	if filters.Enabled {
		if !matchesCategory(fieldText(item, "category"), filters.Categories) {
			return nil
		}
		if !strings.EqualFold(fieldText(item, "custom_label_0"), filters.Label) {
			return nil
		}
	}

	detached := item.Copy()
	for _, canonical := range []string{"title", "description", "link"} {
		if el := findField(detached, canonical); el != nil {
			el.SetText(cleanText(el.Text()))
		}
	}

	symbol := market.Symbol()
	p := &Product{
		ID:        id,
		Price:     price,
		SalePrice: salePrice,
		ImageURLs: imageURLs,
		item:      detached,
	}
	if price != "" {
		p.FormattedPrice = formatPrice(price, symbol)
	}
	if salePrice != "" {
		p.FormattedSalePrice = formatPrice(salePrice, symbol)
	}
	return p
}

// matchesCategory reports whether the item's category contains any of the
// allowed substrings, case-insensitively. An absent category excludes the
// item.
func matchesCategory(category string, allowed []string) bool {
	if category == "" {
		return false
	}
	category = strings.ToLower(category)
	for _, a := range allowed {
		if strings.Contains(category, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

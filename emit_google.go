package adgen

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
)

// googleCSVHeader is the fixed 20-column business-data header of the Google
// feed. Unmapped columns are emitted empty.
var googleCSVHeader = []string{
	"ID",
	"ID2",
	"Item title",
	"Final URL",
	"Image URL",
	"Item subtitle",
	"Item description",
	"Item category",
	"Price",
	"Sale price",
	"Contextual keywords",
	"Item address",
	"Tracking template",
	"Custom parameter",
	"Final mobile URL",
	"Android app link",
	"iOS app link",
	"iOS app store ID",
	"Formatted price",
	"Formatted sale price",
}

// emitGoogleCSV writes the Google Merchant CSV feed: one fixed-column row
// per accepted record.
func emitGoogleCSV(products []*Product, market config.Market, baseURL, path string) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create google feed %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(googleCSVHeader); err != nil {
		return fmt.Errorf("failed to write google feed header: %w", err)
	}
	for _, p := range products {
		row := []string{
			p.ID,
			"",
			p.Field("title"),
			p.Field("link"),
			creativeURL(baseURL, market, p),
			"",
			p.Field("description"),
			p.Field("category"),
			p.Price,
			p.SalePrice,
			p.ContextualKeywords(),
			"",
			"",
			"",
			"",
			"",
			"",
			"",
			p.FormattedPrice,
			p.FormattedSalePrice,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write google feed row for %s: %w", p.ID, err)
		}
	}
	w.Flush()
	return w.Error()
}

package adgen

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/k1LoW/errors"

	"github.com/ballzy/adgen/config"
)

// contaminationMarkers are Estonian fragments that have no business showing
// up in the other markets' feeds. Matched case-insensitively against title
// and description.
var contaminationMarkers = []string{
	"õ",
	"vaata",
	"lähemalt",
	"jalanõud",
	"kingad",
	"tasuta tarne",
}

// ContaminationHit is one marker found in one field of one item.
type ContaminationHit struct {
	Market    string
	ProductID string
	Field     string
	Marker    string
}

// scanFeed checks every item of the full (uncapped, unfiltered) feed
// document for the marker set. The caller decides which markets to scan.
func scanFeed(doc *etree.Document, market config.Market) []ContaminationHit {
	var hits []ContaminationHit
	for _, item := range feedItems(doc) {
		id := fieldText(item, "id")
		for _, field := range []string{"title", "description"} {
			text := strings.ToLower(fieldText(item, field))
			if text == "" {
				continue
			}
			for _, marker := range contaminationMarkers {
				if strings.Contains(text, marker) {
					hits = append(hits, ContaminationHit{
						Market:    market.Code,
						ProductID: id,
						Field:     field,
						Marker:    marker,
					})
				}
			}
		}
	}
	return hits
}

// writeContaminationReport writes the fixed 4-column report. The file is
// always produced, header-only when nothing was flagged, so downstream
// automation always finds it.
func writeContaminationReport(path string, hits []ContaminationHit) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create contamination report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"market", "product_id", "field", "marker"}); err != nil {
		return fmt.Errorf("failed to write contamination report header: %w", err)
	}
	for _, h := range hits {
		if err := w.Write([]string{h.Market, h.ProductID, h.Field, h.Marker}); err != nil {
			return fmt.Errorf("failed to write contamination report row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

package adgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PriceState says which source field supplied the displayed price. It drives
// the color of the rendered price block.
type PriceState int

const (
	PriceStateNormal PriceState = iota
	PriceStateSale
)

func (s PriceState) String() string {
	if s == PriceStateSale {
		return "sale"
	}
	return "normal"
}

// formatPrice renders a feed price like "12.50 EUR" for the creative:
// integer values lose their decimals ("12.00 EUR" -> "12€"), fractional
// values keep exactly two ("12.50 EUR" -> "12.50€"). A non-numeric prefix
// falls back to replacing the currency suffix literally ("N/A EUR" ->
// "N/A€").
func formatPrice(raw, symbol string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		if len(fields) == 1 {
			return fields[0] + symbol
		}
		return strings.Join(fields[:len(fields)-1], " ") + symbol
	}
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d%s", int64(f), symbol)
	}
	return fmt.Sprintf("%.2f%s", f, symbol)
}

package booking

import (
	"fmt"
	"strconv"
	"strings"
)

func parsePriceCents(price string) (int64, bool) {
	price = strings.TrimSpace(price)
	if price == "" {
		return 0, false
	}
	whole, frac, _ := strings.Cut(price, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, false
	}
	cents := w * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		cents += f
	}
	return cents, true
}

func formatPriceCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// AddPrices sums two decimal price strings. A malformed operand makes the
// other win unchanged rather than poisoning the quote.
func AddPrices(a, b string) string {
	ca, okA := parsePriceCents(a)
	cb, okB := parsePriceCents(b)
	switch {
	case okA && okB:
		return formatPriceCents(ca + cb)
	case okA:
		return a
	default:
		return b
	}
}

// Package format renders numbers for human-readable output.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Number returns value with the given number of decimals and thousands
// separators (e.g., "1,500.00").
func Number(value float64, places int) string {
	if places < 0 {
		places = 0
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", places), value)
}

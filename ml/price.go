package ml

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a prediction as US dollars with grouped thousands,
// e.g. 1234.5 becomes "$1,234.50".
func FormatPrice(price float64) string {
	cents := math.Round(price * 100)
	if cents < 0 {
		return "-$" + pricePrinter.Sprintf("%.2f", -cents/100)
	}
	// math.Round keeps the sign of -0.001 as -0
	return "$" + pricePrinter.Sprintf("%.2f", math.Abs(cents)/100)
}

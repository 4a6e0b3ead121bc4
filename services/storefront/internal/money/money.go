// Package money formats commerce amounts for display.
package money

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MinorUnits is the number of minor digits the commerce backend stores for
// every currency.
const MinorUnits = 100

const defaultDigits = 2

// zeroDigit currencies are displayed without fractional digits.
var zeroDigit = map[string]bool{
	"IDR": true,
	"JPY": true,
	"KRW": true,
	"VND": true,
}

var printer = message.NewPrinter(language.English)

// Digits returns the number of fractional digits displayed for code.
func Digits(code string) int {
	code = strings.ToUpper(strings.TrimSpace(code))
	if zeroDigit[code] {
		return 0
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return defaultDigits
	}
	scale, _ := currency.Cash.Rounding(unit)
	return scale
}

// Format renders amount, given in minor units, as "<CODE> <grouped major>".
// Format(150000, "IDR") is "IDR 1,500" and Format(2500, "usd") is "USD 25.00".
func Format(amount int64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	digits := Digits(code)
	major := float64(amount) / MinorUnits
	return code + " " + printer.Sprint(number.Decimal(major,
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
}

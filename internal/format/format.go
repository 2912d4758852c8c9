// Package format holds the rounding and display rules shared by the planner,
// the currency converter and the export layer.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Unavailable is shown in place of metrics a channel does not report.
const Unavailable = "—"

// RoundSmart applies the display rounding used for money and derived values:
// >= 1000 to an integer, >= 1 to cents, below that to 4 decimals.
func RoundSmart(n float64) float64 {
	switch {
	case n >= 1000:
		return math.Round(n)
	case n >= 1:
		return math.Round(n*100) / 100
	default:
		return math.Round(n*10000) / 10000
	}
}

// RoundBenchmark rounds a resolved percentage: >= 10 to 1 decimal, >= 1 to 2,
// below that to 3.
func RoundBenchmark(v float64) float64 {
	switch {
	case v >= 10:
		return math.Round(v*10) / 10
	case v >= 1:
		return math.Round(v*100) / 100
	default:
		return math.Round(v*1000) / 1000
	}
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Spaces renders n with a space as the thousands separator ("1 234 567.5").
func Spaces(n float64) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Calc renders a derived value: rounded and space-grouped, or empty when the
// value is not positive.
func Calc(v float64) string {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return Spaces(RoundSmart(v))
}

var enPrinter = message.NewPrinter(language.English)

// Number renders a total with en-US grouping and at most two fraction digits.
func Number(n float64) string {
	if n == 0 {
		return "0"
	}
	return enPrinter.Sprint(number.Decimal(n, number.MaxFractionDigits(2)))
}

// Money prefixes Number with a currency symbol.
func Money(symbol string, n float64) string {
	return symbol + Number(n)
}

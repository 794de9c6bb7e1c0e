// Package money holds the lenient numeric coercion and currency formatting
// used by every ledger entry point.
package money

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol is the fixed unit every amount is rendered in (PKR).
const CurrencySymbol = "Rs"

var printer = message.NewPrinter(language.English)

// ToNumber parses raw as a floating point number. Anything unparsable or
// non-finite becomes 0, so the result is always finite.
func ToNumber(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	n, err := strconv.ParseFloat(leadingNumber(trimmed), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// leadingNumber keeps the longest numeric prefix, so "12abc" reads as 12
// the way form inputs are usually parsed.
func leadingNumber(s string) string {
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
			if seenDigit {
				end = i + 1
			}
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			return s[:end]
		}
	}
	return s[:end]
}

// Int floors a coerced number and clamps it to at least min.
func Int(raw string, min int) int {
	n := math.Floor(ToNumber(raw))
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if int(n) < min {
		return min
	}
	return int(n)
}

// FormatCurrency renders n as a whole-rupee amount with thousands
// grouping, for example "Rs 1,234" or "-Rs 50".
func FormatCurrency(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	rounded := decimal.NewFromFloat(n).Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + CurrencySymbol + " " + printer.Sprintf("%d", rounded.IntPart())
}

// Raw is a form value that may arrive as a JSON number, a JSON string or
// null. It is only ever consumed through ToNumber.
type Raw string

func (r *Raw) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Raw(s)
		return nil
	}
	*r = Raw(data)
	return nil
}

func (r Raw) Float() float64 {
	return ToNumber(string(r))
}

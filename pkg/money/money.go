package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts travel through the system as int64 in the smallest currency
// unit. Formatting to a display string is the only place decimals appear.

// Format renders an amount in cents as a grouped display string,
// e.g. 10000000 -> "Rp 100.000,00".
func Format(cents int64) string {
	major := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
	return "Rp " + group(major.StringFixed(2))
}

// FormatPlain renders the amount without the currency prefix.
func FormatPlain(cents int64) string {
	major := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
	return group(major.StringFixed(2))
}

func group(fixed string) string {
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart := fixed
	fracPart := ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart = fixed[:idx]
		fracPart = fixed[idx+1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Package format provides shared formatting utilities for human-readable output.
package format

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// exactDigits is enough fractional digits to hold the exact decimal expansion
// of any finite float64.
const exactDigits = 1100

// Fixed formats v with the given number of fractional digits.
//
// Rounding is to nearest with ties away from zero, applied to the exact binary
// value of v, and negative values keep their sign even when they round to zero
// ("-0.00"). This is the rounding performed by JavaScript's Number.toFixed,
// which produced the reports this tool is compared against.
func Fixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	if digits < 0 {
		digits = 0
	}

	neg := v < 0
	exact := new(big.Float).SetFloat64(math.Abs(v)).Text('f', exactDigits)

	intPart, fracPart, _ := strings.Cut(exact, ".")
	fracPart += strings.Repeat("0", digits+1)

	kept := intPart + fracPart[:digits]
	if fracPart[digits] >= '5' {
		kept = incrementDecimal(kept)
	}

	// Re-insert the decimal point counted from the right.
	split := len(kept) - digits
	out := kept[:split]
	if digits > 0 {
		out += "." + kept[split:]
	}

	if neg {
		return "-" + out
	}

	return out
}

// incrementDecimal adds one to a string of decimal digits.
func incrementDecimal(digits string) string {
	b := []byte(digits)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}

	return "1" + string(b)
}

// Percent formats a percentage with two fractional digits and a trailing '%'.
func Percent(v float64) string {
	return Fixed(v, 2) + "%"
}

// Duration formats a duration for human-readable output.
// Handles microseconds, milliseconds, seconds, and minutes.
func Duration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.0fµs", float64(d.Microseconds()))
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	return fmt.Sprintf("%.1fm", d.Minutes())
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Bytes converts bytes to human-readable format (KiB, MiB, GiB, etc.)
func Bytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

package ui

import (
	"fmt"
	"strings"
)

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// truncateMiddle shortens s to max runes keeping both ends, for paths and
// ids where the tail matters as much as the head.
func truncateMiddle(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return truncate(s, max)
	}
	head := (max - 1) / 2
	tail := max - 1 - head
	return string(runes[:head]) + "…" + string(runes[len(runes)-tail:])
}

// padRight pads s with spaces to width runes, truncating when longer.
func padRight(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// formatYen renders an amount as yen with comma grouping, e.g. ¥12,480.
// Orders carry integer yen, so there is never a fractional part.
func formatYen(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "¥" + b.String()
}

// formatCount renders "n of m" tallies for the header and footers.
func formatCount(n, m int) string {
	return fmt.Sprintf("%d/%d", n, m)
}

// pluralize returns the singular or plural form for n.
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

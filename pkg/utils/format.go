// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
)

// FormatPrice formats a price with two decimal places.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatPercent formats a percentage with an explicit sign on gains.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatVolume renders share volume compactly (2.4K, 1.2M, 3.1B).
func FormatVolume(volume int64) string {
	return FormatCompact(float64(volume))
}

// FormatCompact renders a number with a K/M/B suffix once it outgrows four
// digits.
func FormatCompact(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", value/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", value/1e6)
	case abs >= 1e4:
		return fmt.Sprintf("%.1fK", value/1e3)
	default:
		return fmt.Sprintf("%.0f", value)
	}
}

// FormatScore renders a 0-100 score with a coarse strength marker.
func FormatScore(score int) string {
	switch {
	case score >= 80:
		return fmt.Sprintf("%d ***", score)
	case score >= 60:
		return fmt.Sprintf("%d **", score)
	case score >= 40:
		return fmt.Sprintf("%d *", score)
	default:
		return fmt.Sprintf("%d", score)
	}
}

package utils

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any finite value, FormatPercent keeps the sign convention (explicit +
// on gains, bare minus on losses) and parses back to the rounded value.
func TestProperty_FormatPercentRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatPercent keeps sign and value", prop.ForAll(
		func(value float64) bool {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return true
			}

			formatted := FormatPercent(value)

			if !strings.HasSuffix(formatted, "%") {
				t.Logf("Missing %% suffix for %f: %s", value, formatted)
				return false
			}
			if value > 0 && !strings.HasPrefix(formatted, "+") {
				t.Logf("Missing + prefix for %f: %s", value, formatted)
				return false
			}
			if value < 0 && !strings.HasPrefix(formatted, "-") {
				t.Logf("Missing - prefix for %f: %s", value, formatted)
				return false
			}

			numPart := strings.TrimSuffix(strings.TrimPrefix(formatted, "+"), "%")
			parsed, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				t.Logf("Unparseable %s: %v", formatted, err)
				return false
			}

			rounded := math.Round(value*100) / 100
			if math.Abs(parsed-rounded) > 0.005 {
				t.Logf("Value not preserved: original=%f formatted=%s parsed=%f", value, formatted, parsed)
				return false
			}
			return true
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

// FormatCompact picks the suffix by magnitude and stays within the one
// decimal place it renders.
func TestProperty_FormatCompactSuffixAndValue(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatCompact suffix matches magnitude", prop.ForAll(
		func(value float64) bool {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return true
			}

			formatted := FormatCompact(value)
			abs := math.Abs(value)

			var unit float64
			var suffix string
			switch {
			case abs >= 1e9:
				unit, suffix = 1e9, "B"
			case abs >= 1e6:
				unit, suffix = 1e6, "M"
			case abs >= 1e4:
				unit, suffix = 1e3, "K"
			default:
				unit, suffix = 1, ""
			}

			if suffix == "" {
				if strings.ContainsAny(formatted, "KMB") {
					t.Logf("Unexpected suffix for %f: %s", value, formatted)
					return false
				}
			} else if !strings.HasSuffix(formatted, suffix) {
				t.Logf("Expected suffix %s for %f, got %s", suffix, value, formatted)
				return false
			}

			numPart := strings.TrimSuffix(formatted, suffix)
			parsed, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				t.Logf("Unparseable %s: %v", formatted, err)
				return false
			}

			// One rendered decimal place (none below 10K) bounds the error.
			tolerance := 0.051 * unit
			if unit == 1 {
				tolerance = 0.51
			}
			if math.Abs(parsed*unit-value) > tolerance {
				t.Logf("Value drifted: original=%f formatted=%s parsed=%f", value, formatted, parsed)
				return false
			}
			return true
		},
		gen.Float64Range(-5e10, 5e10),
	))

	properties.Property("FormatVolume agrees with FormatCompact", prop.ForAll(
		func(volume int64) bool {
			return FormatVolume(volume) == FormatCompact(float64(volume))
		},
		gen.Int64Range(0, 5_000_000_000),
	))

	properties.TestingRun(t)
}

// FormatScore always leads with the score and marks the strength band.
func TestProperty_FormatScoreBands(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatScore keeps value and band marker", prop.ForAll(
		func(score int) bool {
			formatted := FormatScore(score)

			if !strings.HasPrefix(formatted, strconv.Itoa(score)) {
				t.Logf("Score %d not leading in %s", score, formatted)
				return false
			}

			var marker string
			switch {
			case score >= 80:
				marker = " ***"
			case score >= 60:
				marker = " **"
			case score >= 40:
				marker = " *"
			default:
				marker = ""
			}
			want := strconv.Itoa(score) + marker
			if formatted != want {
				t.Logf("FormatScore(%d) = %s, want %s", score, formatted, want)
				return false
			}
			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

package forecast

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateSerialThreshold separates excel date serial numbers from plain
// business numbers. 25569 is the serial for 1970-01-01; any number above it
// is treated as a document date. Small valid business numbers below the
// threshold can in principle be misclassified, a quirk inherited from the
// source data's own convention.
const dateSerialThreshold = 25569

// dateTextLayouts are accepted when a date field arrives as text rather
// than a serial number.
var dateTextLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseNumber coerces cell text to a float for numeric cells. Empty or
// unparsable text becomes 0 rather than propagating junk into the document.
func parseNumber(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// percentFraction converts a whole-number percentage field (7.5 meaning
// 7.5%) to the fraction written into a percentage-formatted cell (0.075).
// Empty, zero or unparsable input yields 0.
func percentFraction(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsZero() {
		return 0
	}
	f, _ := d.Div(decimal.NewFromInt(100)).Float64()
	return f
}

// dateSerial resolves a date field to an excel serial number. Numeric input
// above the serial threshold is taken as a serial verbatim; otherwise the
// text is parsed as a date and converted. ok is false when neither applies.
func dateSerial(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if d, err := decimal.NewFromString(s); err == nil {
		f, _ := d.Float64()
		if f > dateSerialThreshold {
			return f, true
		}
		return 0, false
	}

	for _, layout := range dateTextLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return timeToSerial(t), true
		}
	}
	return 0, false
}

// timeToSerial converts a time to an excel date serial (days since
// 1899-12-30, via the 1970 epoch offset).
func timeToSerial(t time.Time) float64 {
	utc := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return float64(utc.Unix())/86400 + dateSerialThreshold
}

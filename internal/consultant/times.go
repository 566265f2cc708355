package consultant

import (
	"fmt"
	"time"
)

// Layouts carrying their own zone offset.
var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

// Layouts without a zone; interpreted in the configured server zone.
var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// parseVendorTime parses a vendor timestamp and normalizes it into loc.
func parseVendorTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

package vin

import (
	"regexp"
	"strings"
)

var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bVIN\s*[:#]?\s*([A-Z0-9]{17})\b`),
	regexp.MustCompile(`(?i)\bVehicle\s+Identification\s+Number\s*:?\s*([A-Z0-9]{17})\b`),
	regexp.MustCompile(`(?i)\b([A-Z0-9]{17})\b`),
}

// FindInText returns the first VIN-shaped string in a free-form message, uppercased.
// Labeled forms are tried before bare 17-character runs.
func FindInText(message string) (string, bool) {
	for _, re := range textPatterns {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			v := strings.ToUpper(m[1])
			if IsValidShape(v) {
				return v, true
			}
		}
	}
	return "", false
}

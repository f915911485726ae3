package vin

import (
	"strings"
	"unicode/utf8"
)

// Length is the only accepted VIN length.
const Length = 17

const (
	ViolationLength    = "length must be exactly 17"
	ViolationForbidden = "contains I, O or Q"
	ViolationCharset   = "contains characters other than A-Z and 0-9"
	ViolationMix       = "needs at least one letter and one digit"
)

// IsValidShape reports whether s has the structure of a VIN. It is the single
// rule check shared by the OCR pipeline, FindInText and the decode client.
func IsValidShape(s string) bool {
	return len(ShapeViolations(s)) == 0
}

// ShapeViolations lists every shape rule s breaks, in rule order.
func ShapeViolations(s string) []string {
	var out []string
	if utf8.RuneCountInString(s) != Length {
		out = append(out, ViolationLength)
	}
	if strings.ContainsAny(s, "IOQioq") {
		out = append(out, ViolationForbidden)
	}

	var letters, digits int
	charsetOK := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
			letters++
		default:
			charsetOK = false
		}
	}
	if !charsetOK {
		out = append(out, ViolationCharset)
	}
	if letters == 0 || digits == 0 {
		out = append(out, ViolationMix)
	}
	return out
}

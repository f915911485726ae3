package vin

import "strings"

// CheckDigitStatus is informational only. North American VINs carry a check digit
// at position 9; many other markets do not, so a mismatch never rejects a candidate.
type CheckDigitStatus string

const (
	CheckDigitValid    CheckDigitStatus = "valid"
	CheckDigitMismatch CheckDigitStatus = "mismatch"
)

var transliteration = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
}

var positionWeights = [Length]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// ExpectedCheckDigit computes the position-9 check character for a VIN-shaped string.
func ExpectedCheckDigit(v string) (byte, bool) {
	if !IsValidShape(v) {
		return 0, false
	}
	v = strings.ToUpper(v)
	sum := 0
	for i := 0; i < Length; i++ {
		c := v[i]
		var n int
		if c >= '0' && c <= '9' {
			n = int(c - '0')
		} else {
			n = transliteration[c]
		}
		sum += n * positionWeights[i]
	}
	rem := sum % 11
	if rem == 10 {
		return 'X', true
	}
	return byte('0' + rem), true
}

// CheckDigitOf returns the status for v, or "" when v is not VIN-shaped.
func CheckDigitOf(v string) CheckDigitStatus {
	want, ok := ExpectedCheckDigit(v)
	if !ok {
		return ""
	}
	if strings.ToUpper(v)[8] == want {
		return CheckDigitValid
	}
	return CheckDigitMismatch
}

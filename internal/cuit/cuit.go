// Package cuit validates and formats Argentine tax identifiers (CUIT/CUIL).
package cuit

import (
	"fmt"
	"strings"
)

// Check-digit weights over the first ten digits.
var weights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// Clean strips every non-digit character from a CUIT.
func Clean(cuit string) string {
	var b strings.Builder
	b.Grow(11)
	for _, r := range cuit {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether the CUIT has eleven digits and a correct check digit.
func Valid(cuit string) bool {
	c := Clean(cuit)
	if len(c) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += int(c[i]-'0') * weights[i]
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 9
	}
	return int(c[10]-'0') == check
}

// Numeric strips non-digits and parses the remainder as an integer, the form
// document numbers travel in on the wire. Returns 0 when no digits remain.
func Numeric(doc string) int64 {
	var n int64
	for _, r := range Clean(doc) {
		n = n*10 + int64(r-'0')
	}
	return n
}

// Format renders a CUIT as XX-XXXXXXXX-X.
func Format(cuit string) (string, error) {
	c := Clean(cuit)
	if len(c) != 11 {
		return "", fmt.Errorf("cuit: want 11 digits, got %d", len(c))
	}
	return c[:2] + "-" + c[2:10] + "-" + c[10:], nil
}

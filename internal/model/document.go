package model

import "strings"

// DigitsOnly strips everything but ASCII digits, so "12.345.678/0001-95"
// becomes "12345678000195".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCNPJ reports whether s, punctuated or not, is a CNPJ with correct
// check digits. Sequences of a single repeated digit are rejected.
func ValidCNPJ(s string) bool {
	d := DigitsOnly(s)
	if len(d) != 14 || strings.Count(d, d[:1]) == 14 {
		return false
	}
	return d[12] == cnpjDigit(d[:12]) && d[13] == cnpjDigit(d[:13])
}

// cnpjDigit computes the modulo-11 check digit over base, with weights
// cycling 2..9 from the right.
func cnpjDigit(base string) byte {
	sum, w := 0, 2
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * w
		w++
		if w > 9 {
			w = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

// FormatCNPJ renders a CNPJ as 12.345.678/0001-95. Input that does not hold
// exactly 14 digits is returned unchanged.
func FormatCNPJ(s string) string {
	d := DigitsOnly(s)
	if len(d) != 14 {
		return s
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// FormatCNAE renders a CNAE subclass code as 6920-6/01. Input that does not
// hold exactly 7 digits is returned unchanged.
func FormatCNAE(s string) string {
	d := DigitsOnly(s)
	if len(d) != 7 {
		return s
	}
	return d[0:4] + "-" + d[4:5] + "/" + d[5:7]
}

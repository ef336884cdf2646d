// internal/phone/phone.go
package phone

import "strings"

// Canonical normalizes a raw phone number to digits-only international form.
// Numbers that look national (no country prefix) get defaultCountry prepended,
// so every stored phone compares equal regardless of how the caller typed it.
func Canonical(raw, defaultCountry string) string {
	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}

	// "00" international-dialing prefix
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	// National numbers are at most 11 digits (area code + subscriber). Longer
	// strings already carry a country code.
	if len(digits) <= 11 && !strings.HasPrefix(digits, defaultCountry) {
		digits = defaultCountry + digits
	}
	return digits
}

// Match reports whether two canonical numbers refer to the same line. Some
// providers echo recipients without the extra mobile digit, so an exact
// comparison falls back to the last eight digits.
func Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return suffix(a, 8) == suffix(b, 8)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

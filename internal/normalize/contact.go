package normalize

import "strings"

// PhoneParts reduces a phone number to digits and splits it into the
// wizard's three inputs (area code, prefix, line). Fewer than ten digits
// yields three empty parts; a partial number typed into the form would
// fail the page's validation, so the inputs are left untouched instead.
func PhoneParts(phone string) (area, prefix, line string) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 10 {
		return "", "", ""
	}
	// Keep the last ten; leading country codes are not enterable.
	d = d[len(d)-10:]
	return d[:3], d[3:6], d[6:]
}

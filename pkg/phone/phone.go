// Package phone canonicalizes Nigerian phone numbers to the 234XXXXXXXXXX form.
package phone

import (
	"strings"

	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
)

const (
	CountryCode = "234"
	trunkPrefix = "0"
)

// Normalize strips every non-digit and maps the 13, 11 and 10 digit
// representations onto the canonical 234 form.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 13 && strings.HasPrefix(digits, CountryCode):
		return digits, nil
	case len(digits) == 11 && strings.HasPrefix(digits, trunkPrefix):
		return CountryCode + digits[1:], nil
	case len(digits) == 10:
		return CountryCode + digits, nil
	}
	return "", pkgerrors.ErrInvalidPhone
}

// Local renders a canonical number in its 0XXXXXXXXXX form. Input that is not
// canonical is returned unchanged.
func Local(canonical string) string {
	if len(canonical) == 13 && strings.HasPrefix(canonical, CountryCode) {
		return trunkPrefix + canonical[3:]
	}
	return canonical
}

// Last4 returns the last four digits, used in account references and names.
func Last4(canonical string) string {
	if len(canonical) < 4 {
		return canonical
	}
	return canonical[len(canonical)-4:]
}

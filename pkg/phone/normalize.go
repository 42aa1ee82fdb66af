package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses a raw phone string against a default region and returns
// it in E.164 format. Region defaults to ES when empty.
func Normalize(raw, region string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	if region == "" {
		region = "ES"
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number: %s", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeOrKeep normalizes to E.164 when possible and falls back to the
// raw value for numbers that do not parse. Scraped data is messy; a bad
// phone must never block lead persistence.
func NormalizeOrKeep(raw, region string) string {
	normalized, err := Normalize(raw, region)
	if err != nil {
		return raw
	}
	return normalized
}

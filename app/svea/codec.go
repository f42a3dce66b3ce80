package svea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var ErrFieldTooShort = errors.New("field is below minimum length")

// FormatMoney renders an amount the way the gateway expects it: exactly two
// fraction digits and a comma as the decimal separator, no grouping. A
// negative amount keeps its leading minus sign.
func FormatMoney(amount decimal.Decimal) string {
	return strings.Replace(amount.StringFixed(2), ".", ",", 1)
}

// ParseMoney reads a gateway-formatted amount back into a decimal. Both comma
// and point separators are accepted since some response fields use either.
func ParseMoney(value string) (decimal.Decimal, error) {
	normalized := strings.Replace(strings.TrimSpace(value), ",", ".", 1)
	if normalized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(normalized)
}

// TrimToLength enforces the per-field length policy. Lengths are measured in
// code points, not bytes. Overflow is silently right-truncated to max; a value
// shorter than min fails with ErrFieldTooShort.
func TrimToLength(value string, min, max int) (string, error) {
	runes := []rune(value)
	if len(runes) < min {
		return "", fmt.Errorf("%w: got %d code points, need at least %d", ErrFieldTooShort, len(runes), min)
	}
	if max > 0 && len(runes) > max {
		return string(runes[:max]), nil
	}
	return value, nil
}

// FilterAlphanumeric strips every character outside [A-Za-z0-9].
func FilterAlphanumeric(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToISO88591 transcodes a UTF-8 string to ISO-8859-1 bytes. Runes with no
// Latin-1 mapping are replaced with '?' rather than dropped so field lengths
// stay stable.
func ToISO88591(value string) []byte {
	encoder := charmap.ISO8859_1.NewEncoder()
	out := make([]byte, 0, len(value))
	for _, r := range value {
		encoded, err := encoder.Bytes([]byte(string(r)))
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, encoded...)
	}
	return out
}

// FromISO88591 transcodes ISO-8859-1 bytes to a UTF-8 string.
func FromISO88591(raw []byte) (string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

package fotocasa

import (
	"fmt"
	"strconv"
	"strings"
)

// DeriveReference extracts the listing reference from its URL: take the last
// "/" segment, split it on "?" and keep the second-to-last piece. URLs whose
// tail has no "?" cannot be referenced and fail the whole record.
//
//	".../ref123?foo=1&bar=2" → "ref123"
func DeriveReference(listingURL string) (string, error) {
	segments := strings.Split(listingURL, "/")
	tail := segments[len(segments)-1]
	parts := strings.Split(tail, "?")
	if len(parts) < 2 {
		return "", fmt.Errorf("reference: no query delimiter in %q", tail)
	}
	return parts[len(parts)-2], nil
}

// PostalCodeFromStartURL returns the value of the zipCode query parameter.
func PostalCodeFromStartURL(startURL string) (string, error) {
	_, after, ok := strings.Cut(startURL, "zipCode=")
	if !ok {
		return "", fmt.Errorf("start url %q has no zipCode parameter", startURL)
	}
	code, _, _ := strings.Cut(after, "&")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("start url %q has an empty zipCode", startURL)
	}
	return code, nil
}

// ParseCount reads the leading number of a counter heading such as
// "1.234 viviendas en venta". Anything unparsable is zero.
func ParseCount(heading string) int {
	fields := strings.Fields(heading)
	if len(fields) == 0 {
		return 0
	}
	digits := strings.NewReplacer(".", "", ",", "").Replace(fields[0])
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package service

import "regexp"

var (
	phonePattern  = regexp.MustCompile(`(\+?\d[\d\-\s\(\)]{8,}\d)`)
	phoneStripped = regexp.MustCompile(`[^\d+]`)
)

// DetectPhone finds the first phone-like run in free text and normalizes
// it to digits with an optional leading plus. Returns "" when nothing
// phone-like appears.
func DetectPhone(text string) string {
	match := phonePattern.FindString(text)
	if match == "" {
		return ""
	}
	return phoneStripped.ReplaceAllString(match, "")
}

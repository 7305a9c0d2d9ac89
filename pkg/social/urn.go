package social

import "regexp"

// threadURNPatterns are tried in order when the API rejects a thread URN.
// The explicit "actual threadUrn" forms are preferred so we never pick up
// the URN we sent from the error text.
var threadURNPatterns = []*regexp.Regexp{
	regexp.MustCompile(`actual threadUrn: (urn:li:activity:\d+)`),
	regexp.MustCompile(`actual threadUrn: (urn:li:ugcPost:\d+)`),
	regexp.MustCompile(`(urn:li:activity:\d+)`),
	regexp.MustCompile(`(urn:li:ugcPost:\d+)`),
}

// FormatURN converts a bare numeric post ID into activity URN form.
// Values already in URN form pass through unchanged.
func FormatURN(urnOrID string) string {
	if len(urnOrID) >= 7 && urnOrID[:7] == "urn:li:" {
		return urnOrID
	}
	return "urn:li:activity:" + urnOrID
}

// ExtractThreadURN pulls the corrected thread URN out of a mismatch error
// message. Returns false when no URN is present.
func ExtractThreadURN(errorText string) (string, bool) {
	for _, pattern := range threadURNPatterns {
		if match := pattern.FindStringSubmatch(errorText); match != nil {
			return match[1], true
		}
	}
	return "", false
}

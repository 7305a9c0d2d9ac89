package social

import "fmt"

const urnMismatchMarker = "is not the same as the actual threadUrn"

// URNMismatchError reports that the platform rejected our thread URN and
// named the correct one in the error body.
type URNMismatchError struct {
	Provided string
	Correct  string
}

func (e *URNMismatchError) Error() string {
	return fmt.Sprintf("thread urn mismatch: provided %s, actual %s", e.Provided, e.Correct)
}

// APIError is a non-2xx response from the platform that is not a
// recognized conflict or mismatch.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform api error: status %d: %s", e.StatusCode, e.Body)
}

package arxiv

import (
	"fmt"
)

// APIError is a non-success response from arXiv.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("arxiv: %s (URL: %s)", e.Message, e.URL)
	}
	return fmt.Sprintf("arxiv: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

package models

import "fmt"

// Depth selects how thorough a provider search is.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Source is one citation backing an answer.
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is a sourced answer returned by a search provider.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// StatusError reports a non-2xx provider response. Body holds a bounded
// prefix of the response body for logging.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API returned status %d: %s", e.Code, e.Body)
}

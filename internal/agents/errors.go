package agents

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned before any request is made when the start
	// page or the page count is below 1.
	ErrInvalidRange = errors.New("invalid page range")
	// ErrTokenUnavailable means the search form could not be primed, no page
	// of the batch can be fetched without it.
	ErrTokenUnavailable = errors.New("search form tokens unavailable")
	// ErrUpstreamRequestFailed is a transport error or non-success status for one request.
	ErrUpstreamRequestFailed = errors.New("upstream request failed")
	// ErrUpstreamParseFailed is a response body that could not be read as html.
	ErrUpstreamParseFailed = errors.New("upstream response could not be parsed")
	// ErrAllPagesFailed is returned when not a single page of a batch succeeded.
	ErrAllPagesFailed = errors.New("all pages failed")
)

// PageError is the failure of a single page fetch.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s", e.Page, e.Err.Error())
}

func (e *PageError) Unwrap() error {
	return e.Err
}

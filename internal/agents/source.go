package agents

import "context"

// Source opens search sessions against the registry.
//
// note: fault injection point
type Source interface {
	// Acquire performs the priming request of a new session and returns it.
	// Errors should wrap ErrTokenUnavailable.
	Acquire(ctx context.Context) (Session, error)
}

// Session is one primed search form, a session must not be used by more
// than one goroutine at a time.
type Session interface {
	// FetchPage submits the search form for the given 1-based page. Errors
	// should wrap ErrUpstreamRequestFailed or ErrUpstreamParseFailed.
	FetchPage(ctx context.Context, filters Filters, page int) (Page, error)
}

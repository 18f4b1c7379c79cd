package telemetry

import (
	"fmt"

	"maharera-api/lib/assert"
)

// API is what components report through, tests swap in a Recorder.
//
// Ids name the component that reported, lowercase with dashes for methods,
// e.g. "session.fetch-page".
type API interface {
	// ReportBroken reports a failure that needs attention.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something recoverable, like a skipped page.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports the value of a count at the time of the call.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id reported to inner with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	assert.NotEmptyStr(namespace, "namespace")
	assert.NotNil(inner, "inner")
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}

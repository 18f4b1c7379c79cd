package maharera

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"maharera-api/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const sessionCookie = "SSESSmaharera"

// fakeRegistry serves the handful of registry pages the scraper talks to.
type fakeRegistry struct {
	t *testing.T

	mu       sync.Mutex
	sessions int
	// pages maps a page number to the html served for it, pages missing from
	// the map answer with status 500.
	pages     map[int]string
	landing   string
	forms     []map[string]string
	headers   []http.Header
	queries   []map[string]string
	divisions string
	districts map[string]string
	// delays holds pages answered only after a pause, or once the client
	// hangs up, whichever comes first.
	delays map[int]time.Duration
	onPage func(page int)
}

func newFakeRegistry(t *testing.T) (*fakeRegistry, *httptest.Server) {
	fake := &fakeRegistry{
		t:         t,
		pages:     map[int]string{},
		landing:   landingHtml,
		districts: map[string]string{},
		delays:    map[int]time.Duration{},
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeRegistry) newRegistry(server *httptest.Server) (Registry, *telemetry.Recorder) {
	return f.newRegistryWithOptions(server, Options{})
}

func (f *fakeRegistry) newRegistryWithOptions(server *httptest.Server, opts Options) (Registry, *telemetry.Recorder) {
	recorder := &telemetry.Recorder{}
	opts.BaseUrl = server.URL
	opts.Telemetry = recorder
	registry, err := NewRegistry(opts)
	require.NoError(f.t, err)
	return registry, recorder
}

func (f *fakeRegistry) recordQuery(r *http.Request) {
	query := map[string]string{}
	for key := range r.URL.Query() {
		query[key] = r.URL.Query().Get(key)
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == landingPath && r.Method == http.MethodGet:
		f.mu.Lock()
		f.sessions++
		id := f.sessions
		landing := f.landing
		f.mu.Unlock()

		http.SetCookie(w, &http.Cookie{
			Name:  sessionCookie,
			Value: fmt.Sprintf("session-%d", id),
			Path:  "/",
		})
		fmt.Fprint(w, landing)

	case r.URL.Path == searchPath && r.Method == http.MethodPost:
		_, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		form := map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		f.mu.Lock()
		f.forms = append(f.forms, form)
		f.headers = append(f.headers, r.Header.Clone())
		f.mu.Unlock()

		page, err := strconv.Atoi(form["page"])
		if err != nil {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		contents, ok := f.pages[page]
		delay := f.delays[page]
		onPage := f.onPage
		f.mu.Unlock()

		if onPage != nil {
			onPage(page)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if !ok {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, contents)

	case r.URL.Path == divisionsPath:
		f.recordQuery(r)
		f.mu.Lock()
		contents := f.divisions
		f.mu.Unlock()
		fmt.Fprint(w, contents)

	case r.URL.Path == districtsPath:
		f.recordQuery(r)
		f.mu.Lock()
		contents, ok := f.districts[r.URL.Query().Get("division_code")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "unknown division", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, contents)

	default:
		http.NotFound(w, r)
	}
}

type fakeRow struct {
	srNo          string
	name          string
	certificateNo string
}

// resultsPage renders a result page in the markup of the registry.
func resultsPage(total int, rows ...fakeRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="responsiveTable"><tbody>`)
	for _, row := range rows {
		fmt.Fprintf(
			&b,
			`<tr><td>%s</td><td>%s</td><td>%s</td><td><a href="/agents/view/%s">View</a></td><td></td><td><a href="/certificates/%s.pdf">Certificate</a></td></tr>`,
			row.srNo, row.name, row.certificateNo, row.certificateNo, row.certificateNo,
		)
	}
	b.WriteString(`</tbody></table>`)
	if total > 0 {
		fmt.Fprintf(&b, `<ul class="pagination"><li class="pagesCount" data-total="%d"></li></ul>`, total)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func (f *fakeRegistry) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *fakeRegistry) Forms() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

func (f *fakeRegistry) Headers() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.headers...)
}

func (f *fakeRegistry) Queries() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.queries...)
}

func (f *fakeRegistry) SetPage(page int, contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = contents
}

func (f *fakeRegistry) SetLanding(contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.landing = contents
}

func (f *fakeRegistry) SetDivisions(contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.divisions = contents
}

func (f *fakeRegistry) SetDistricts(divisionCode, contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.districts[divisionCode] = contents
}

func (f *fakeRegistry) SetDelay(page int, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[page] = delay
}

// OnPage registers a callback run when a page is requested, before the
// page is served.
func (f *fakeRegistry) OnPage(fn func(page int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPage = fn
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"maharera-api/internal/agents"
	"maharera-api/internal/maharera"
	"maharera-api/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type aggregateCall struct {
	filters   agents.Filters
	startPage int
	pageCount int
}

type fakeAggregator struct {
	result agents.BatchResult
	err    error

	mutex sync.Mutex
	calls []aggregateCall
}

func (f *fakeAggregator) Aggregate(ctx context.Context, filters agents.Filters, startPage, pageCount int) (agents.BatchResult, error) {
	f.mutex.Lock()
	f.calls = append(f.calls, aggregateCall{filters: filters, startPage: startPage, pageCount: pageCount})
	f.mutex.Unlock()

	if f.err != nil {
		return agents.BatchResult{}, f.err
	}
	result := f.result
	result.Pagination.StartPage = startPage
	result.Pagination.PagesRequested = pageCount
	return result, nil
}

type fakeReference struct {
	divisions []maharera.Option
	districts map[int][]maharera.Option
	err       error
}

func (f fakeReference) Divisions(ctx context.Context) ([]maharera.Option, error) {
	return f.divisions, f.err
}

func (f fakeReference) Districts(ctx context.Context, divisionId int) ([]maharera.Option, error) {
	if f.err != nil {
		return nil, f.err
	}
	districts, ok := f.districts[divisionId]
	if !ok {
		return []maharera.Option{}, nil
	}
	return districts, nil
}

func intPtr(n int) *int {
	return &n
}

func testResult() agents.BatchResult {
	return agents.BatchResult{
		Agents: []agents.Record{
			{
				SrNo:           intPtr(1),
				Name:           "Anup Sharma",
				CertificateNo:  "A51800000001",
				DetailsUrl:     "https://maharera.maharashtra.gov.in/agents/view/1001",
				CertificateUrl: "https://maharera.maharashtra.gov.in/certificates/A51800000001.pdf",
			},
		},
		Pagination: agents.Pagination{
			PagesFetched: 1,
			TotalPages:   12,
			TotalRecords: 120,
		},
	}
}

type testServer struct {
	aggregator *fakeAggregator
	recorder   *telemetry.Recorder
	handler    http.Handler
}

func newTestServer(aggregator *fakeAggregator, reference fakeReference) testServer {
	recorder := &telemetry.Recorder{}
	return testServer{
		aggregator: aggregator,
		recorder:   recorder,
		handler:    NewServer(aggregator, reference, recorder).Handler(),
	}
}

func (s testServer) get(t *testing.T, target string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Result()
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

func decodeError(t *testing.T, res *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestAgentsDefaults(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: testResult()}, fakeReference{})

	res := srv.get(t, "/api/agents")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
	require.JSONEq(t, `{
		"agents": [{
			"sr_no": 1,
			"name": "Anup Sharma",
			"certificate_no": "A51800000001",
			"details_url": "https://maharera.maharashtra.gov.in/agents/view/1001",
			"certificate_url": "https://maharera.maharashtra.gov.in/certificates/A51800000001.pdf"
		}],
		"pagination": {
			"start_page": 1,
			"pages_requested": 1,
			"pages_fetched": 1,
			"total_pages": 12,
			"total_records": 120
		}
	}`, readBody(t, res))

	require.Equal(t, []aggregateCall{{
		filters:   agents.Filters{State: agents.DefaultState},
		startPage: 1,
		pageCount: 1,
	}}, srv.aggregator.calls)
}

func TestAgentsFilters(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: testResult()}, fakeReference{})

	res := srv.get(t, "/api/agents?page=3&pages=2&agent_name=Anup&agent_project_name=Skyline+Plaza&agent_location=Pune&agent_state=29&agent_division=2&agent_district=519")
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Equal(t, []aggregateCall{{
		filters: agents.Filters{
			Name:        "Anup",
			ProjectName: "Skyline Plaza",
			Location:    "Pune",
			State:       "29",
			Division:    "2",
			District:    "519",
		},
		startPage: 3,
		pageCount: 2,
	}}, srv.aggregator.calls)
}

func TestAgentsCsv(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: testResult()}, fakeReference{})

	res := srv.get(t, "/api/agents?page=4&format=csv")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "text/csv; charset=utf-8", res.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="agents_page_4.csv"`, res.Header.Get("Content-Disposition"))
	require.Equal(
		t,
		"Sr No,Agent Name,Certificate Number,Details URL,Certificate URL\n"+
			"1,Anup Sharma,A51800000001,https://maharera.maharashtra.gov.in/agents/view/1001,https://maharera.maharashtra.gov.in/certificates/A51800000001.pdf\n",
		readBody(t, res),
	)
}

func TestAgentsInvalidRange(t *testing.T) {
	table := []string{
		"/api/agents?page=0",
		"/api/agents?page=-2",
		"/api/agents?pages=0",
		"/api/agents?page=abc",
		"/api/agents?pages=1.5",
	}

	for _, target := range table {
		srv := newTestServer(&fakeAggregator{result: testResult()}, fakeReference{})
		res := srv.get(t, target)
		require.Equal(t, http.StatusBadRequest, res.StatusCode, target)
		body := decodeError(t, res)
		require.Equal(t, "Invalid page range", body.Error, target)
		require.NotEmpty(t, body.Message, target)
		require.Empty(t, srv.aggregator.calls, target)
	}
}

func TestAgentsInvalidRangeFromAggregator(t *testing.T) {
	srv := newTestServer(&fakeAggregator{err: fmt.Errorf("%w: page=1 pages=1", agents.ErrInvalidRange)}, fakeReference{})
	res := srv.get(t, "/api/agents")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAgentsFailure(t *testing.T) {
	table := []error{
		fmt.Errorf("%w: landing page status 503", agents.ErrTokenUnavailable),
		fmt.Errorf("%w: page 1: upstream request failed", agents.ErrAllPagesFailed),
	}

	for _, aggErr := range table {
		srv := newTestServer(&fakeAggregator{err: aggErr}, fakeReference{})
		res := srv.get(t, "/api/agents?pages=3")
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		require.Equal(t, errorBody{
			Error:   "Failed to fetch agents data",
			Message: aggErr.Error(),
		}, decodeError(t, res))
		require.Len(t, srv.recorder.Find("broken", report_server_agents), 1)
	}
}

func TestDivisions(t *testing.T) {
	srv := newTestServer(&fakeAggregator{}, fakeReference{
		divisions: []maharera.Option{{Id: 1, Name: "Konkan"}, {Id: 2, Name: "Pune"}},
	})

	res := srv.get(t, "/api/divisions")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `[{"id":1,"name":"Konkan"},{"id":2,"name":"Pune"}]`, readBody(t, res))

	srv = newTestServer(&fakeAggregator{}, fakeReference{err: agents.ErrUpstreamRequestFailed})
	res = srv.get(t, "/api/divisions")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Equal(t, "Failed to fetch divisions", decodeError(t, res).Error)
}

func TestDistricts(t *testing.T) {
	srv := newTestServer(&fakeAggregator{}, fakeReference{
		districts: map[int][]maharera.Option{
			2: {{Id: 519, Name: "Pune"}, {Id: 520, Name: "Satara"}},
		},
	})

	res := srv.get(t, "/api/districts?division_id=2")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `[{"id":519,"name":"Pune"},{"id":520,"name":"Satara"}]`, readBody(t, res))

	res = srv.get(t, "/api/districts?division_id=9")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `[]`, readBody(t, res))

	res = srv.get(t, "/api/districts")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Missing division_id", decodeError(t, res).Error)

	res = srv.get(t, "/api/districts?division_id=pune")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Invalid division_id", decodeError(t, res).Error)
}

func TestOpenapi(t *testing.T) {
	srv := newTestServer(&fakeAggregator{}, fakeReference{})

	res := srv.get(t, "/api/openapi.json")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var doc struct {
		Openapi string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&doc))
	require.Equal(t, "3.0.3", doc.Openapi)
	require.Contains(t, doc.Paths, "/api/agents")
	require.Contains(t, doc.Paths, "/api/divisions")
	require.Contains(t, doc.Paths, "/api/districts")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeAggregator{}, fakeReference{})
	res := srv.get(t, "/healthz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", readBody(t, res))
}

func TestJsonCompatible(t *testing.T) {
	doc := jsonCompatible(map[any]any{
		200:   "ok",
		"key": []any{map[any]any{true: 1}},
	})
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, `{"200":"ok","key":[{"true":1}]}`, string(body))
}

func TestClientGoneIsNotBroken(t *testing.T) {
	srv := newTestServer(&fakeAggregator{err: context.Canceled}, fakeReference{err: context.Canceled})

	for _, target := range []string{"/api/agents", "/api/divisions", "/api/districts?division_id=2"} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx))
		require.NotEqual(t, http.StatusInternalServerError, rec.Code, target)
	}

	for _, report := range srv.recorder.Reports() {
		require.NotEqual(t, "broken", report.Kind, report.Id)
	}
	require.Len(t, srv.recorder.Find("debug", report_server_agents), 1)
	require.Len(t, srv.recorder.Find("debug", report_server_districts), 1)
}

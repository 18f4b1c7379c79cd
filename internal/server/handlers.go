package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"maharera-api/internal/agents"
	"maharera-api/internal/present"
)

const (
	report_server_agents    = "handle-agents"
	report_server_divisions = "handle-divisions"
	report_server_districts = "handle-districts"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJson(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

func writeError(w http.ResponseWriter, code int, summary string, err error) {
	writeJson(w, code, errorBody{Error: summary, Message: err.Error()})
}

// queryPositiveInt reads an integer >= 1 from the query, an absent or empty
// value yields def.
func queryPositiveInt(query url.Values, key string, def int) (int, error) {
	value := strings.TrimSpace(query.Get(key))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", agents.ErrInvalidRange, key, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %s must be at least 1, got %d", agents.ErrInvalidRange, key, n)
	}
	return n, nil
}

func filtersFromQuery(query url.Values) agents.Filters {
	get := func(key string) string {
		return strings.TrimSpace(query.Get(key))
	}
	filters := agents.Filters{
		Name:        get("agent_name"),
		ProjectName: get("agent_project_name"),
		Location:    get("agent_location"),
		State:       get("agent_state"),
		Division:    get("agent_division"),
		District:    get("agent_district"),
	}
	if filters.State == "" {
		filters.State = agents.DefaultState
	}
	return filters
}

func (s Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := queryPositiveInt(query, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page range", err)
		return
	}
	pages, err := queryPositiveInt(query, "pages", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page range", err)
		return
	}

	result, err := s.aggregator.Aggregate(r.Context(), filtersFromQuery(query), page, pages)
	if errors.Is(err, agents.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, "Invalid page range", err)
		return
	}
	if err != nil {
		if r.Context().Err() != nil {
			s.tel.ReportDebug(report_server_agents, "client went away", err)
			return
		}
		s.tel.ReportBroken(report_server_agents, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch agents data", err)
		return
	}

	res, err := present.Render(result, present.ParseFormat(query.Get("format")))
	if err != nil {
		s.tel.ReportBroken(report_server_agents, fmt.Errorf("render: %w", err))
		writeError(w, http.StatusInternalServerError, "Failed to render agents data", err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	if disposition := res.ContentDisposition(); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Body)
}

func (s Server) handleDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := s.reference.Divisions(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			s.tel.ReportDebug(report_server_divisions, "client went away", err)
			return
		}
		s.tel.ReportBroken(report_server_divisions, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch divisions", err)
		return
	}
	writeJson(w, http.StatusOK, divisions)
}

func (s Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	value := strings.TrimSpace(r.URL.Query().Get("division_id"))
	if value == "" {
		writeError(w, http.StatusBadRequest, "Missing division_id", errors.New("division_id is required"))
		return
	}
	divisionId, err := strconv.Atoi(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid division_id", fmt.Errorf("division_id must be an integer, got %q", value))
		return
	}

	districts, err := s.reference.Districts(r.Context(), divisionId)
	if err != nil {
		if r.Context().Err() != nil {
			s.tel.ReportDebug(report_server_districts, "client went away", err)
			return
		}
		s.tel.ReportBroken(report_server_districts, err, divisionId)
		writeError(w, http.StatusInternalServerError, "Failed to fetch districts", err)
		return
	}
	writeJson(w, http.StatusOK, districts)
}

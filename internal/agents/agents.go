// Package agents contains the registry-independent half of the agent search:
// the record types, the error taxonomy and the Aggregator that merges a range
// of result pages into one BatchResult.
package agents

import "math"

// DefaultState is the state code searched when a caller does not give one (Maharashtra).
const DefaultState = "27"

// Filters are the search form fields, an empty field leaves that dimension
// unconstrained. The same Filters are submitted for every page of a batch.
type Filters struct {
	Name        string `json:"agent_name"`
	ProjectName string `json:"agent_project_name"`
	Location    string `json:"agent_location"`
	State       string `json:"agent_state"`
	Division    string `json:"agent_division"`
	District    string `json:"agent_district"`
}

// Record is one row of the agent search results.
type Record struct {
	// SrNo is the row's position within its page, nil if the cell was not a number.
	SrNo           *int   `json:"sr_no"`
	Name           string `json:"name"`
	CertificateNo  string `json:"certificate_no"`
	DetailsUrl     string `json:"details_url"`
	CertificateUrl string `json:"certificate_url"`
}

// PaginationHint is what a single result page declares about the whole result set.
type PaginationHint struct {
	CurrentPage  int `json:"current_page"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
}

// NewPaginationHint derives the hint of a page that contained `rows` records.
// When the page did not declare a total, the row count is used instead.
//
// TotalPages divides by the row count of this page, so it is only an estimate
// when this page is shorter than a full page.
func NewPaginationHint(page int, declaredTotal int, declared bool, rows int) PaginationHint {
	total := declaredTotal
	if !declared {
		total = rows
	}
	perPage := rows
	if perPage < 1 {
		perPage = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages < 1 {
		totalPages = 1
	}
	return PaginationHint{
		CurrentPage:  page,
		TotalRecords: total,
		TotalPages:   totalPages,
	}
}

// Page is the result of fetching one page of the search.
type Page struct {
	Records []Record
	Hint    PaginationHint
}

type Pagination struct {
	StartPage      int `json:"start_page"`
	PagesRequested int `json:"pages_requested"`
	PagesFetched   int `json:"pages_fetched"`
	TotalPages     int `json:"total_pages"`
	TotalRecords   int `json:"total_records"`
}

// BatchResult is the merged result of a range of pages.
type BatchResult struct {
	Agents     []Record   `json:"agents"`
	Pagination Pagination `json:"pagination"`
}

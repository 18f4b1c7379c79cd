package maharera

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"maharera-api/internal/agents"
	"maharera-api/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

const (
	report_reference_divisions = "reference.divisions"
	report_reference_districts = "reference.districts"
)

const (
	divisionPlaceholder = "Select Division"
	districtPlaceholder = "District"
)

// minMatchSimilarity is the lowest Jaro-Winkler similarity MatchOption accepts.
const minMatchSimilarity = 0.85

// Option is a division or district of the search form.
type Option struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

func (r Registry) fetchOptions(ctx context.Context, reportId, path string, query map[string]string, placeholder string) ([]Option, error) {
	client, err := r.newHttpClient()
	if err != nil {
		return nil, err
	}

	res, err := client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		r.reportBroken(ctx, reportId, fmt.Errorf("fetch: %w", err))
		return nil, fmt.Errorf("%w: %w", agents.ErrUpstreamRequestFailed, err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("%w: status %s", agents.ErrUpstreamRequestFailed, res.Status())
		r.tel.ReportBroken(reportId, err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		r.tel.ReportBroken(reportId, fmt.Errorf("parse: %w", err))
		return nil, fmt.Errorf("%w: %w", agents.ErrUpstreamParseFailed, err)
	}

	return parseOptions(doc, placeholder), nil
}

// parseOptions keeps the <option>s with a numeric value that are not the
// placeholder entry.
func parseOptions(doc *goquery.Document, placeholder string) []Option {
	options := []Option{}
	for _, opt := range htmlutil.GetOptions(doc) {
		if opt.Value == "" || opt.Text == placeholder {
			continue
		}
		id, err := strconv.Atoi(opt.Value)
		if err != nil {
			continue
		}
		options = append(options, Option{Id: id, Name: opt.Text})
	}
	return options
}

// Divisions lists the divisions of the default state.
func (r Registry) Divisions(ctx context.Context) ([]Option, error) {
	return r.fetchOptions(ctx, report_reference_divisions, divisionsPath, map[string]string{
		"stateCode":  agents.DefaultState,
		"langID":     "1",
		"form_code":  "custom_search_form",
		"field_code": "agent_division",
	}, divisionPlaceholder)
}

// Districts lists the districts of a division.
func (r Registry) Districts(ctx context.Context, divisionId int) ([]Option, error) {
	return r.fetchOptions(ctx, report_reference_districts, districtsPath, map[string]string{
		"state_code":    agents.DefaultState,
		"lang_id":       "1",
		"division_code": strconv.Itoa(divisionId),
		"district_form": "custom_search_form",
		// sic, the registry spells the parameter this way
		"distruct_field": "agent_district",
	}, districtPlaceholder)
}

func normalizeOptionName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MatchOption resolves user input to one of options. A numeric query matches
// by id, anything else matches the most similar name.
func MatchOption(options []Option, query string) (Option, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Option{}, false
	}
	if id, err := strconv.Atoi(query); err == nil {
		for _, opt := range options {
			if opt.Id == id {
				return opt, true
			}
		}
		return Option{}, false
	}

	target := normalizeOptionName(query)
	var best Option
	bestSimilarity := 0.0
	for _, opt := range options {
		name := normalizeOptionName(opt.Name)
		if name == target {
			return opt, true
		}
		similarity := matchr.JaroWinkler(name, target, false)
		if similarity > bestSimilarity {
			best = opt
			bestSimilarity = similarity
		}
	}
	if bestSimilarity < minMatchSimilarity {
		return Option{}, false
	}
	return best, true
}

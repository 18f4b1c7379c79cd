package maharera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"maharera-api/internal/agents"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_session_acquire    = "session.acquire"
	report_session_fetch_page = "session.fetch-page"
	report_session_extract    = "session.extract"
)

// searchFormId is the form_id of the agent search form, the landing page
// carries other forms (site search) with their own build ids.
const searchFormId = "agent_search_page_form"

// FormTokens are the hidden fields the search form must be submitted with.
type FormTokens struct {
	BuildId string
	// Token is the csrf token, some deployments render the form without one.
	Token  string
	FormId string
}

// extractTokens finds the agent search form on the landing page and reads its
// hidden fields. If no form declares searchFormId, the first form carrying
// both a build id and a form id is used.
func extractTokens(doc *goquery.Document) (FormTokens, error) {
	var candidates []FormTokens
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		candidates = append(candidates, FormTokens{
			BuildId: form.Find("input[name=form_build_id]").AttrOr("value", ""),
			Token:   form.Find("input[name=form_token]").AttrOr("value", ""),
			FormId:  form.Find("input[name=form_id]").AttrOr("value", ""),
		})
	})
	// inputs are sometimes rendered outside of the <form> element
	candidates = append(candidates, FormTokens{
		BuildId: doc.Find("input[name=form_build_id]").AttrOr("value", ""),
		Token:   doc.Find("input[name=form_token]").AttrOr("value", ""),
		FormId:  doc.Find("input[name=form_id]").AttrOr("value", ""),
	})

	for _, tokens := range candidates {
		if tokens.FormId == searchFormId && tokens.BuildId != "" {
			return tokens, nil
		}
	}
	for _, tokens := range candidates {
		if tokens.BuildId != "" && tokens.FormId != "" {
			return tokens, nil
		}
	}
	return FormTokens{}, errors.New("could not find form_build_id and form_id")
}

// Acquire implements agents.Source, it primes a new session by fetching the
// landing page with a fresh cookie jar.
func (r Registry) Acquire(ctx context.Context) (agents.Session, error) {
	acquireError := func(err error) error {
		return fmt.Errorf("%w: %w", agents.ErrTokenUnavailable, err)
	}

	client, err := r.newHttpClient()
	if err != nil {
		return nil, acquireError(err)
	}

	res, err := client.R().
		SetContext(ctx).
		Get(landingPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.tel.ReportBroken(
			report_session_acquire,
			fmt.Errorf("landing page request: %w", err),
		)
		return nil, acquireError(fmt.Errorf("%w: %w", agents.ErrUpstreamRequestFailed, err))
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("%w: landing page status %s", agents.ErrUpstreamRequestFailed, res.Status())
		r.tel.ReportBroken(report_session_acquire, err)
		return nil, acquireError(err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		r.tel.ReportBroken(
			report_session_acquire,
			fmt.Errorf("parse landing page: %w", err),
		)
		return nil, acquireError(fmt.Errorf("%w: %w", agents.ErrUpstreamParseFailed, err))
	}

	tokens, err := extractTokens(doc)
	if err != nil {
		r.tel.ReportBroken(report_session_acquire, err)
		return nil, acquireError(err)
	}
	if tokens.Token == "" {
		r.tel.ReportDebug("landing page has no form_token")
	}

	return &session{
		registry: r,
		http:     client,
		tokens:   tokens,
	}, nil
}

type session struct {
	registry Registry
	http     *resty.Client
	tokens   FormTokens
}

// Tokens returns the form tokens the session was primed with.
func (s *session) Tokens() FormTokens {
	return s.tokens
}

func (s *session) formData(filters agents.Filters, page int) map[string]string {
	return map[string]string{
		"agent_name":         filters.Name,
		"agent_project_name": filters.ProjectName,
		"agent_location":     filters.Location,
		"agent_state":        filters.State,
		"agent_division":     filters.Division,
		"agent_district":     filters.District,
		"page":               strconv.Itoa(page),
		"form_build_id":      s.tokens.BuildId,
		"form_token":         s.tokens.Token,
		"form_id":            s.tokens.FormId,
		"op":                 "Search",
	}
}

// FetchPage implements agents.Session.
func (s *session) FetchPage(ctx context.Context, filters agents.Filters, page int) (agents.Page, error) {
	tel := s.registry.tel
	pageError := func(err error) error {
		return &agents.PageError{Page: page, Err: err}
	}

	tel.ReportDebug(report_session_fetch_page, page)

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Origin", s.registry.baseUrl.String()).
		SetHeader("Referer", s.registry.endpoint(landingPath)).
		SetFormData(s.formData(filters, page)).
		Post(searchPath)
	if err != nil {
		s.registry.reportBroken(ctx, report_session_fetch_page, fmt.Errorf("fetch: %w", err), page)
		return agents.Page{}, pageError(fmt.Errorf("%w: %w", agents.ErrUpstreamRequestFailed, err))
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("%w: status %s", agents.ErrUpstreamRequestFailed, res.Status())
		tel.ReportBroken(report_session_fetch_page, err, page)
		return agents.Page{}, pageError(err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		tel.ReportBroken(
			report_session_fetch_page,
			fmt.Errorf("parse: %w", err),
			page,
		)
		return agents.Page{}, pageError(fmt.Errorf("%w: %w", agents.ErrUpstreamParseFailed, err))
	}

	extraction := Extract(doc, s.registry.baseUrl)
	if extraction.SkippedRows > 0 {
		tel.ReportWarning(report_session_extract, "skipped malformed rows", extraction.SkippedRows, page)
	}

	return agents.Page{
		Records: extraction.Records,
		Hint: agents.NewPaginationHint(
			page,
			extraction.DeclaredTotal,
			extraction.Declared,
			len(extraction.Records),
		),
	}, nil
}

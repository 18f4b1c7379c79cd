package maharera

import (
	"net/url"
	"regexp"
	"strconv"

	"maharera-api/internal/agents"
	"maharera-api/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	rowSelector   = "table.responsiveTable tbody tr"
	totalSelector = ".pagination .pagesCount"
	totalAttr     = "data-total"
)

// column positions of a result row, column 4 holds the application action
// and is not read
const (
	colSrNo          = 0
	colName          = 1
	colCertificateNo = 2
	colDetails       = 3
	colCertificate   = 5
	minColumns       = colCertificate + 1
)

// Extraction is everything read from one result page.
type Extraction struct {
	Records []agents.Record
	// DeclaredTotal is the total record count stated by the page, only
	// meaningful when Declared is true.
	DeclaredTotal int
	Declared      bool
	// SkippedRows counts rows with fewer than minColumns cells.
	SkippedRows int
}

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// parseLeadingInt reads the integer at the start of s, trailing text is
// ignored ("12." is 12).
func parseLeadingInt(s string) (int, bool) {
	groups := leadingInt.FindStringSubmatch(s)
	if len(groups) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Extract reads the agent rows and the declared total out of a result page.
// It never fails, malformed rows are skipped and missing values are left empty.
func Extract(doc *goquery.Document, base *url.URL) Extraction {
	var out Extraction

	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		cols := row.ChildrenFiltered("td")
		if cols.Length() < minColumns {
			out.SkippedRows++
			return
		}

		record := agents.Record{
			Name:           htmlutil.CleanText(cols.Eq(colName)),
			CertificateNo:  htmlutil.CleanText(cols.Eq(colCertificateNo)),
			DetailsUrl:     htmlutil.GetAnchor(base, cols.Eq(colDetails)).Url,
			CertificateUrl: htmlutil.GetAnchor(base, cols.Eq(colCertificate)).Url,
		}
		srNo, ok := parseLeadingInt(htmlutil.CleanText(cols.Eq(colSrNo)))
		if ok {
			record.SrNo = &srNo
		}
		out.Records = append(out.Records, record)
	})

	total, ok := parseLeadingInt(doc.Find(totalSelector).First().AttrOr(totalAttr, ""))
	// a declared total of 0 is no better than no total at all
	if ok && total > 0 {
		out.DeclaredTotal = total
		out.Declared = true
	}

	return out
}

package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText returns the text content of a selection with non-printable
// characters removed and runs of whitespace collapsed into a single space.
func CleanText(sel *goquery.Selection) string {
	var text string
	for _, n := range sel.Nodes {
		text += GetText(n)
	}
	text = removeNonPrintable(text)
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}

// ResolveHref resolves an href against base. Placeholder hrefs ("", "#...",
// "javascript:...") and hrefs that fail to parse resolve to "".
func ResolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return link.String()
	}
	return base.ResolveReference(link).String()
}

type Anchor struct {
	Name string
	Url  string
}

// GetAnchor returns the first anchor inside sel, the zero value is returned
// if there is none.
func GetAnchor(base *url.URL, sel *goquery.Selection) Anchor {
	a := sel.Find("a").First()
	if a.Length() == 0 {
		return Anchor{}
	}
	return Anchor{
		Name: CleanText(a),
		Url:  ResolveHref(base, a.AttrOr("href", "")),
	}
}

type Option struct {
	Value string
	Text  string
}

// GetOptions returns the value and trimmed text of every <option> in doc.
func GetOptions(doc *goquery.Document) []Option {
	var options []Option
	doc.Find("option").Each(func(_ int, s *goquery.Selection) {
		options = append(options, Option{
			Value: strings.TrimSpace(s.AttrOr("value", "")),
			Text:  CleanText(s),
		})
	})
	return options
}

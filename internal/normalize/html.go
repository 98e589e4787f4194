package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DescriptionText reduces a description_html blob to canonical plain text:
// markup stripped, script/style dropped, whitespace collapsed. The content
// hash is computed over this form, so sources that re-render the same
// description with different markup or spacing do not show up as UPDATED.
func DescriptionText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// not parseable as HTML; fall back to collapsing the raw text
		return CleanText(html)
	}

	doc.Find("script, style, noscript").Remove()
	return CleanText(doc.Text())
}

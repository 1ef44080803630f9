package bulletins

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// policy is an explicit allow-list: anything not named here is stripped.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "code", "pre")
	p.AllowAttrs("href", "title", "rel", "target").OnElements("a")
	p.AllowStandardURLs()
	return p
}

// Sanitize strips every tag and attribute outside the allow-list.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// RenderHTML renders a markdown body to HTML and sanitizes the result. The
// body is sanitized at load time, so its entities are decoded first or
// blackfriday would escape them a second time.
func RenderHTML(md string) string {
	out := blackfriday.Run([]byte(html.UnescapeString(md)))
	return string(policy.SanitizeBytes(out))
}

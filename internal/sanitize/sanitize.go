// Package sanitize reduces listing descriptions to a small inline HTML
// subset that is safe to render.
package sanitize

import (
	"html"
	"io"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
)

// Allowed output tags. b and i are rewritten to strong and em.
var rename = map[string]string{
	"strong": "strong",
	"b":      "strong",
	"em":     "em",
	"i":      "em",
	"u":      "u",
}

// Elements whose text is dropped along with the tags.
var dropContent = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

var (
	breakRun   = regexp.MustCompile(`(?i)(<br>\s*){3,}`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Description keeps strong, em, u and br, turns closing p and div into a
// line break, drops every other tag and escapes the text in between.
func Description(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var (
		b       strings.Builder
		open    []string
		skipTag string
	)

	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() != io.EOF {
				// Unparseable tail; keep it as text.
				b.WriteString(html.EscapeString(string(z.Raw())))
			}
			break
		}

		name, _ := z.TagName()
		tag := strings.ToLower(string(name))

		if skipTag != "" {
			if tt == xhtml.EndTagToken && tag == skipTag {
				skipTag = ""
			}
			continue
		}

		switch tt {
		case xhtml.TextToken:
			b.WriteString(html.EscapeString(string(z.Text())))
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			switch {
			case tag == "br":
				b.WriteString("<br>")
			case dropContent[tag] && tt == xhtml.StartTagToken:
				skipTag = tag
			case rename[tag] != "" && tt == xhtml.StartTagToken:
				out := rename[tag]
				open = append(open, out)
				b.WriteString("<" + out + ">")
			}
		case xhtml.EndTagToken:
			switch {
			case tag == "p", tag == "div":
				b.WriteString("<br>")
			case rename[tag] != "":
				out := rename[tag]
				if i := lastIndex(open, out); i >= 0 {
					open = append(open[:i], open[i+1:]...)
					b.WriteString("</" + out + ">")
				}
			}
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}

	out := breakRun.ReplaceAllString(b.String(), "<br><br>")
	out = newlineRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}

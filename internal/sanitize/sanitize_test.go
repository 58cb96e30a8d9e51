package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"plain text", "One owner, no accidents", "One owner, no accidents"},
		{"b and i renamed", "<b>Clean</b> <i>title</i>", "<strong>Clean</strong> <em>title</em>"},
		{"allowed kept", "<strong>A</strong><em>B</em><u>C</u>", "<strong>A</strong><em>B</em><u>C</u>"},
		{"br normalized", "a<br/>b<BR >c", "a<br>b<br>c"},
		{"paragraphs", "<p class=\"x\">one</p><p>two</p>", "one<br>two<br>"},
		{"divs", "<div>one</div>two", "one<br>two"},
		{"other tags dropped", "<span style=\"color:red\">red</span> <a href=\"x\">link</a>", "red link"},
		{"attributes dropped", "<b onclick=\"evil()\">x</b>", "<strong>x</strong>"},
		{"script removed", "safe<script>alert(1)</script> text", "safe text"},
		{"text escaped", "5 < 6 & \"ok\"", "5 &lt; 6 &amp; &#34;ok&#34;"},
		{"break runs collapsed", "a<br><br> <br><br>b", "a<br><br>b"},
		{"newline runs collapsed", "a\r\n\r\n\r\n\r\nb", "a\n\nb"},
		{"unclosed tag closed", "<b>bold", "<strong>bold</strong>"},
		{"stray close dropped", "text</b>", "text"},
		{"trimmed", "  <p>x</p>  ", "x<br>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Description(tt.in))
		})
	}
}

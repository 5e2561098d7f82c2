package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWidgetHTML(t *testing.T) {
	tests := map[string]struct {
		in       string
		contains []string
		excludes []string
	}{
		"empty": {
			in: "   ",
		},
		"emphasis": {
			in:       "We have **3** red shirts, *today only*.",
			contains: []string{"<p>", "<strong>3</strong>", "<em>today only</em>"},
		},
		"list": {
			in:       "- Red Shirt\n- Blue Jeans",
			contains: []string{"<ul>", "<li>Red Shirt</li>", "<li>Blue Jeans</li>"},
		},
		"raw html dropped": {
			in:       "hello <script>alert(1)</script> there",
			excludes: []string{"<script>", "</script>"},
		},
		"headings stripped": {
			in:       "# Opening hours",
			contains: []string{"Opening hours"},
			excludes: []string{"<h1"},
		},
		"fenced code keeps no class": {
			in:       "```go\nfmt.Println()\n```",
			contains: []string{"<pre><code>"},
			excludes: []string{"class="},
		},
		"links open safely": {
			in:       "[map](https://example.com/map)",
			contains: []string{`href="https://example.com/map"`, `target="_blank"`, "nofollow"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := ToWidgetHTML(tc.in)
			if len(tc.contains) == 0 && len(tc.excludes) == 0 {
				assert.Empty(t, got)
			}
			for _, want := range tc.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tc.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

package archive

import (
	"strings"

	"codebundle/shared/types"
)

const prismCDN = "https://cdn.jsdelivr.net/npm/prismjs@1.29.0"

const htmlHeader = `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>All Extracted Code</title>
  <link href="` + prismCDN + `/themes/prism-tomorrow.min.css" rel="stylesheet"/>
  <link href="` + prismCDN + `/plugins/line-numbers/prism-line-numbers.min.css" rel="stylesheet"/>
  <style>
    body { font-family: Arial, sans-serif; background: #1e1e1e; color: #eee; padding: 20px; }
    h2 { color: #61dafb; border-bottom: 1px solid #444; padding-bottom: 5px; margin-top: 30px; }
    pre { margin: 10px 0; border-radius: 6px; }
    code { font-size: 14px; }
  </style>
</head>
<body>
<h1>Extracted Code Files</h1>
`

var prismScripts = []string{
	"prism.min.js",
	"plugins/line-numbers/prism-line-numbers.min.js",
	"components/prism-typescript.min.js",
	"components/prism-javascript.min.js",
	"components/prism-json.min.js",
	"components/prism-tsx.min.js",
	"components/prism-java.min.js",
	"components/prism-markup.min.js",
	"components/prism-properties.min.js",
	"components/prism-css.min.js",
}

// only &, < and > are touched; quotes pass through
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes text for a <code> block
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func htmlOpen(sb *strings.Builder) {
	sb.WriteString(htmlHeader)
}

// htmlRecord appends the heading and tagged code block for one record
func htmlRecord(sb *strings.Builder, r shared.FileRecord) {
	sb.WriteString("<h2>")
	sb.WriteString(EscapeHTML(r.Path))
	sb.WriteString("</h2>\n")
	sb.WriteString(`<pre class="line-numbers"><code class="language-`)
	sb.WriteString(Language(r.Path))
	sb.WriteString(`">`)
	sb.WriteString(EscapeHTML(r.Content))
	sb.WriteString("</code></pre>\n")
}

func htmlClose(sb *strings.Builder) {
	sb.WriteString("\n")
	for _, script := range prismScripts {
		sb.WriteString(`<script src="` + prismCDN + "/" + script + `"></script>` + "\n")
	}
	sb.WriteString("</body>\n</html>\n")
}

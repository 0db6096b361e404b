package format

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"go.uber.org/zap"
)

// Matches sanitized fenced code blocks so they can be re-emitted with
// highlighting. The class survives sanitization because the policy allows
// the language- prefix on code elements.
var codeBlockPattern = regexp.MustCompile(`(?s)<pre><code class="language-([a-zA-Z0-9_+-]+)">(.*?)</code></pre>`)

// MarkdownHTML converts aigent markdown to sanitized HTML. The order is
// fixed: parse first, sanitize the full result, then highlight fenced code
// blocks - highlighting output is generated locally and must not pass
// through the sanitizer, while the LLM's markup always must.
func (r *Renderer) MarkdownHTML(content string) string {
	content = preprocessAigentText(content)

	raw := markdown.ToHTML([]byte(content), nil, nil)
	safe := r.policy.SanitizeBytes(raw)
	highlighted := r.highlightCodeBlocks(string(safe))

	return "<div class=\"message-text markdown-body\">" + highlighted + "</div>"
}

// highlightCodeBlocks replaces sanitized fenced blocks with chroma output
// using inline styles.
func (r *Renderer) highlightCodeBlocks(htmlText string) string {
	return codeBlockPattern.ReplaceAllStringFunc(htmlText, func(block string) string {
		parts := codeBlockPattern.FindStringSubmatch(block)
		if parts == nil {
			return block
		}
		lang := parts[1]
		code := html.UnescapeString(parts[2])

		highlighted, err := highlight(code, lang)
		if err != nil {
			r.logger.Debug("Code highlighting failed, keeping sanitized block",
				zap.String("lang", lang), zap.Error(err))
			return block
		}
		return highlighted
	})
}

func highlight(code, lang string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(false))
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// preprocessAigentText normalizes LLM output before parsing.
func preprocessAigentText(text string) string {
	if text == "" {
		return text
	}

	// Replace curly quotes (helps readability)
	return strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)
}

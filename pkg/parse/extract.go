package parse

import (
	"strings"

	"github.com/quillnotes/quill/pkg/diag"
)

// Span is one directive occurrence inside free text. The range covers the
// whole bracketed span including the brackets; Source is the directive source
// between them.
type Span struct {
	diag.Ranging
	Source       string
	Unterminated bool
}

// Extract finds all directive spans in free text. "[[" and "]]" are escapes
// for literal brackets and do not open or close directives. Brackets inside a
// directive (wrapper bodies, nested constructs) are matched, and bracket
// characters inside string and pattern literals are ignored, so a directive
// is never split at the first "]" naively.
func Extract(text string) []Span {
	var spans []Span
	for i := 0; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], "[["):
			i += 2
		case strings.HasPrefix(text[i:], "]]"):
			i += 2
		case text[i] == '[':
			end, ok := matchDirective(text, i)
			spans = append(spans, Span{
				Ranging:      diag.Ranging{From: i, To: end},
				Source:       directiveSource(text, i, end, ok),
				Unterminated: !ok,
			})
			i = end
		default:
			i++
		}
	}
	return spans
}

// matchDirective scans from the opening bracket at start and returns the
// offset just past the matching closing bracket. ok is false when the text
// ends before the bracket is closed; end is then len(text).
func matchDirective(text string, start int) (end int, ok bool) {
	depth := 1
	i := start + 1
	for i < len(text) {
		switch text[i] {
		case '[':
			depth++
			i++
		case ']':
			depth--
			i++
			if depth == 0 {
				return i, true
			}
		case '"':
			i = skipString(text, i)
		case '/':
			i = skipPattern(text, i)
		default:
			i++
		}
	}
	return len(text), false
}

func directiveSource(text string, start, end int, ok bool) string {
	if ok {
		return text[start+1 : end-1]
	}
	return text[start+1 : end]
}

// skipString advances past a double-quoted string literal starting at i.
func skipString(text string, i int) int {
	i++ // opening quote
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

// skipPattern advances past a /pattern/ literal starting at i. A pattern
// cannot span lines, which keeps a stray slash in prose from swallowing the
// rest of the directive.
func skipPattern(text string, i int) int {
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
		case '/':
			return j + 1
		case '\n':
			return i + 1
		default:
			j++
		}
	}
	return i + 1
}

// Unescape replaces the "[[" and "]]" escapes with literal brackets. Used
// when rendering text that contains no directives (or whose directives have
// already been replaced).
func Unescape(text string) string {
	text = strings.ReplaceAll(text, "[[", "[")
	return strings.ReplaceAll(text, "]]", "]")
}

// ReplaceSpans renders text with each directive span replaced by the value of
// repl, and bracket escapes unescaped.
func ReplaceSpans(text string, repl func(Span) string) string {
	spans := Extract(text)
	var sb strings.Builder
	last := 0
	for _, sp := range spans {
		sb.WriteString(Unescape(text[last:sp.From]))
		sb.WriteString(repl(sp))
		last = sp.To
	}
	sb.WriteString(Unescape(text[last:]))
	return sb.String()
}

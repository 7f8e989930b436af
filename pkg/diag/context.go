package diag

import (
	"fmt"
	"strings"
)

// Context is a range of text within a named source. It identifies where in a
// directive an error happened.
type Context struct {
	Name   string
	Source string
	Ranging
}

// NewContext creates a new Context.
func NewContext(name, source string, r Ranger) *Context {
	return &Context{name, source, r.Range()}
}

// LineRange returns the 1-based line range that the context covers, in the
// form "line 3:" or "line 3-5:".
func (c *Context) LineRange() string {
	before := c.Source[:clamp(c.From, 0, len(c.Source))]
	culprit := c.Source[clamp(c.From, 0, len(c.Source)):clamp(c.To, 0, len(c.Source))]
	begin := strings.Count(before, "\n") + 1
	end := begin + strings.Count(strings.TrimSuffix(culprit, "\n"), "\n")
	if begin == end {
		return fmt.Sprintf("line %d:", begin)
	}
	return fmt.Sprintf("line %d-%d:", begin, end)
}

// Show renders the context: the source name, the line range and the culprit
// text, with the culprit highlighted.
func (c *Context) Show(indent string) string {
	if c.From < 0 || c.To > len(c.Source) || c.From > c.To {
		return fmt.Sprintf("%s, invalid position %d-%d", c.Name, c.From, c.To)
	}
	culprit := c.Source[c.From:c.To]
	culprit = strings.TrimSuffix(culprit, "\n")
	if culprit == "" {
		culprit = culpritPlaceholder
	}
	var sb strings.Builder
	sb.WriteString(c.Name + ", " + c.LineRange())
	for _, line := range strings.Split(culprit, "\n") {
		sb.WriteString("\n" + indent + "  ")
		sb.WriteString(culpritBegin + line + culpritEnd)
	}
	return sb.String()
}

var (
	culpritBegin       = "\033[1;4m"
	culpritEnd         = "\033[m"
	culpritPlaceholder = "^"
)

// DisableColor turns off ANSI highlighting in Show output. Used when the
// output is not a terminal.
func DisableColor() {
	culpritBegin, culpritEnd = "", ""
}

func clamp(i, low, high int) int {
	if i < low {
		return low
	}
	if i > high {
		return high
	}
	return i
}

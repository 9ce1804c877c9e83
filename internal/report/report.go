// Package report renders probe diagnostics to the console.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// RuleWidth is the width of header rules.
const RuleWidth = 80

// Reporter writes styled diagnostics to one writer.
type Reporter struct {
	w      io.Writer
	styles Styles
}

// New creates a Reporter that writes to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w, styles: NewStyles(lipgloss.NewRenderer(w))}
}

// Writer returns the underlying writer.
func (r *Reporter) Writer() io.Writer { return r.w }

func (r *Reporter) println(s string) {
	_, _ = fmt.Fprintln(r.w, s)
}

// Printf writes an unstyled line.
func (r *Reporter) Printf(format string, args ...any) {
	r.println(fmt.Sprintf(format, args...))
}

// Blank writes an empty line.
func (r *Reporter) Blank() { r.println("") }

// Header writes a title between two rules.
func (r *Reporter) Header(emoji, title string) {
	rule := r.styles.Rule.Render(strings.Repeat("=", RuleWidth))
	r.println("")
	r.println(rule)
	if emoji != "" {
		title = emoji + " " + title
	}
	r.println(r.styles.Title.Render(title))
	r.println(rule)
}

// Banner writes a boxed title with optional detail lines.
func (r *Reporter) Banner(title string, lines ...string) {
	body := r.styles.Title.Render(title)
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	r.println(r.styles.Banner.Render(body))
}

// Success writes a ✅ line.
func (r *Reporter) Success(format string, args ...any) {
	r.println(r.styles.Success.Render("✅ " + fmt.Sprintf(format, args...)))
}

// Error writes a ❌ line.
func (r *Reporter) Error(format string, args ...any) {
	r.println(r.styles.Error.Render("❌ " + fmt.Sprintf(format, args...)))
}

// Warn writes a ⚠️ line.
func (r *Reporter) Warn(format string, args ...any) {
	r.println(r.styles.Warning.Render("⚠️  " + fmt.Sprintf(format, args...)))
}

// Info writes an ℹ️ line.
func (r *Reporter) Info(format string, args ...any) {
	r.println(r.styles.Info.Render("ℹ️  " + fmt.Sprintf(format, args...)))
}

// Step writes a 🔍 line announcing a check.
func (r *Reporter) Step(format string, args ...any) {
	r.println("🔍 " + fmt.Sprintf(format, args...))
}

// Muted writes a dimmed line.
func (r *Reporter) Muted(format string, args ...any) {
	r.println(r.styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// Pair is one key/value row.
type Pair struct {
	Key   string
	Value string
}

// P builds a Pair, formatting the value with %v.
func P(key string, value any) Pair {
	return Pair{Key: key, Value: fmt.Sprint(value)}
}

// KV writes aligned key/value rows, indented.
func (r *Reporter) KV(pairs ...Pair) {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p.Key); w > width {
			width = w
		}
	}
	for _, p := range pairs {
		pad := strings.Repeat(" ", width-lipgloss.Width(p.Key))
		r.println("   " + r.styles.Key.Render(p.Key+":") + pad + " " + p.Value)
	}
}

// Counts writes a count table sorted by key order given.
func (r *Reporter) Counts(keys []string, counts map[string]int) {
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, P(k, counts[k]))
	}
	r.KV(pairs...)
}

// Table writes a simple column-aligned table.
func (r *Reporter) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	cells := func(row []string, style *lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cell := v + strings.Repeat(" ", widths[i]-lipgloss.Width(v))
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell
		}
		return "   " + strings.Join(parts, " | ")
	}

	r.println(cells(headers, &r.styles.Header))
	total := 0
	for _, w := range widths {
		total += w
	}
	total += 3 * (len(widths) - 1)
	r.println("   " + r.styles.Rule.Render(strings.Repeat("-", total)))
	for _, row := range rows {
		r.println(cells(row, nil))
	}
}

// Section writes a titled bullet list.
func (r *Reporter) Section(title string, lines ...string) {
	r.println("")
	r.println(r.styles.Title.Render(title + ":"))
	for _, l := range lines {
		r.println("   - " + l)
	}
}

// Numbered writes a titled numbered list.
func (r *Reporter) Numbered(title string, items ...string) {
	r.println("")
	r.println(r.styles.Title.Render(title + ":"))
	for i, item := range items {
		r.println(fmt.Sprintf("   %d. %s", i+1, item))
	}
}

// Commands writes shell commands for the operator to run, one per line.
func (r *Reporter) Commands(title string, commands []string) {
	if len(commands) == 0 {
		return
	}
	r.println("")
	r.println(r.styles.Title.Render(title + ":"))
	for _, c := range commands {
		r.println("   " + r.styles.Muted.Render(c))
	}
}

// Lines writes lines indented, for file previews.
func (r *Reporter) Lines(lines []string) {
	for _, l := range lines {
		r.println("   " + l)
	}
}

// JSON writes body indented when it is JSON, otherwise as text. Output longer
// than limit bytes is truncated; limit <= 0 means no limit.
func (r *Reporter) JSON(body []byte, limit int) {
	var buf bytes.Buffer
	s := string(body)
	if json.Indent(&buf, body, "", "  ") == nil {
		s = buf.String()
	}
	if limit > 0 && len(s) > limit {
		s = Truncate(s, limit) + "..."
	}
	r.println(s)
}

// Truncate cuts s to at most limit bytes, backing up to the start of a rune
// so multi-byte characters are never split. limit <= 0 means no limit.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

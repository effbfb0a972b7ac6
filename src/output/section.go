package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const sectionWidth = 61 // inner width between │ and line end

// Status is the outcome shown next to a row.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Section is a box-drawing framed block of output.
type Section struct {
	w     io.Writer
	color bool
}

// NewSection writes the section header and returns the open section.
// A non-zero elapsed is shown right-aligned in the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	s := &Section{w: w, color: color}

	label := fmt.Sprintf("── %s ", name)
	suffix := "──"
	if elapsed > 0 {
		suffix = fmt.Sprintf(" %s ──", formatElapsed(elapsed))
	}
	fill := max(sectionWidth+4-len(label)-len(suffix), 1)

	header := label + strings.Repeat("─", fill) + suffix
	if color {
		header = "\033[2;36m" + header + colorReset
	}
	fmt.Fprintf(w, "\n    %s\n", header)
	return s
}

// Row writes a line inside the frame.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// StatusRow writes an aligned name, icon and detail line.
func (s *Section) StatusRow(name string, status Status, detail string) {
	s.Row("%s %s  %s", StatusIcon(status, s.color), name, Dimmed(detail, s.color))
}

// Separator writes a divider inside the frame.
func (s *Section) Separator() {
	fmt.Fprintf(s.w, "    ├%s\n", strings.Repeat("─", sectionWidth))
}

// Close writes the footer.
func (s *Section) Close() {
	fmt.Fprintf(s.w, "    └%s\n", strings.Repeat("─", sectionWidth))
}

// StatusIcon returns the icon for status, colored when asked.
func StatusIcon(status Status, color bool) string {
	switch status {
	case StatusOK:
		return colorize("✓", colorGreen, color)
	case StatusFailed:
		return colorize("✗", colorRed, color)
	default:
		return colorize("⊘", colorYellow, color)
	}
}

// Dimmed greys text out when color is on.
func Dimmed(text string, color bool) string {
	return colorize(text, colorGray, color)
}

// KV is one entry of a context block.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints key/value pairs two per line.
func ContextBlock(w io.Writer, kv []KV) {
	if len(kv) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(w, "    %-12s%-14s%-11s%s\n", kv[i].Key, kv[i].Value, kv[i+1].Key, kv[i+1].Value)
		} else {
			fmt.Fprintf(w, "    %-12s%s\n", kv[i].Key, kv[i].Value)
		}
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	return fmt.Sprintf("%dm%.1fs", mins, d.Seconds()-float64(mins*60))
}

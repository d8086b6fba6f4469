package overlay

import (
	"fmt"
	"io"
	"strings"
)

// Console prints a status line whenever the rounded status changes
type Console struct {
	w    io.Writer
	last string
}

// NewConsole writes status lines to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Publish(s Status) error {
	line := FormatLine(s)
	if line == c.last {
		return nil
	}
	c.last = line
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// FormatLine renders s as one human-readable line
func FormatLine(s Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cadence: %5.1f rpm (%s)", s.Cadence, s.Source)
	if s.Band != "" {
		fmt.Fprintf(&b, " [%s]", s.Band)
	}
	if s.PowerWatts != nil {
		fmt.Fprintf(&b, " | Power: %d W", *s.PowerWatts)
	}
	fmt.Fprintf(&b, " | Keys: {%s}", strings.Join(s.Keys, ", "))
	if s.Paused {
		b.WriteString(" | PAUSED")
	}

	var down []string
	for _, id := range s.Devices() {
		if h := s.Health[id]; h != "connected" {
			down = append(down, id+" "+h)
		}
	}
	if len(down) > 0 {
		fmt.Fprintf(&b, " | %s", strings.Join(down, ", "))
	}
	return b.String()
}

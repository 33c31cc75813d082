package supervisor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agent-team/agent-team/ring"
)

// ANSI color codes, grounded on the teacher's stdout renderer: one color
// per event kind, dimmed timestamps, no color at all when NO_COLOR is set
// or the writer isn't rendering to a terminal (Renderer.Plain).
const (
	ansiReset = "\x1b[0m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[36m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
	ansiGray  = "\x1b[90m"
	ansiRed   = "\x1b[31m"
)

// Renderer writes a human-readable line per OutputEntry to an io.Writer —
// the session's own stdout, by convention. Plain disables ANSI color, for
// writers that aren't a terminal (a log file, a piped consumer).
type Renderer struct {
	w     io.Writer
	Plain bool
}

// NewRenderer wraps w, setting Plain when NO_COLOR is set or w is a file
// that is not a terminal.
func NewRenderer(w io.Writer) *Renderer {
	plain := os.Getenv("NO_COLOR") != ""
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
			plain = true
		}
	}
	return &Renderer{w: w, Plain: plain}
}

// Render writes one line for entry. It never returns an error: a failed
// write to the session's own stdout is not something a caller can usefully
// recover from, so Render logs nothing and simply best-effort writes.
func (r *Renderer) Render(e ring.OutputEntry) {
	ts := e.Timestamp.Format("15:04:05")
	switch k := e.Kind.(type) {
	case ring.UserPrompt:
		r.line(ts, ansiCyan, ">", e.Text)
	case ring.AgentMessage:
		r.line(ts, ansiGreen, "", e.Text)
	case ring.AgentThought:
		r.line(ts, ansiGray, "(thinking)", e.Text)
	case ring.ToolCall:
		r.line(ts, ansiBlue, "tool", fmt.Sprintf("%s [%s]", k.Name, k.Status))
	case ring.ToolCallUpdate:
		r.line(ts, ansiBlue, "tool", fmt.Sprintf("%s [%s] %s", k.Name, k.Status, e.Text))
	case ring.Plan:
		r.line(ts, ansiBlue, "plan", e.Text)
	case ring.PermissionRequest:
		r.line(ts, ansiRed, "permission", e.Text+" ("+k.ID+")")
	case ring.Info:
		r.line(ts, ansiGray, "info", e.Text)
	case ring.Error:
		r.line(ts, ansiRed, "error", e.Text)
	default:
		r.line(ts, "", "?", e.Text)
	}
}

func (r *Renderer) line(ts, color, label, text string) {
	var b strings.Builder
	if r.Plain || color == "" {
		if label != "" {
			fmt.Fprintf(&b, "[%s] %s: %s\n", ts, label, text)
		} else {
			fmt.Fprintf(&b, "[%s] %s\n", ts, text)
		}
	} else {
		if label != "" {
			fmt.Fprintf(&b, "%s[%s]%s %s%s:%s %s\n", ansiDim, ts, ansiReset, color, label, ansiReset, text)
		} else {
			fmt.Fprintf(&b, "%s[%s]%s %s%s%s\n", ansiDim, ts, ansiReset, color, text, ansiReset)
		}
	}
	_, _ = io.WriteString(r.w, b.String())
}

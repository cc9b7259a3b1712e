package iface

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Console prints tracker events to a terminal. It implements
// tracker.Publisher.
type Console struct {
	out   io.Writer
	color bool
	mu    sync.Mutex
}

// NewConsole writes to out, with ANSI colors when color is set
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

// NewStdoutConsole writes to stdout, colored when it is a terminal and
// NO_COLOR is unset
func NewStdoutConsole() *Console {
	color := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""
	return NewConsole(colorable.NewColorableStdout(), color)
}

// Colorize applies color to text if enabled
func (c *Console) Colorize(text string, color string) string {
	if !c.color {
		return text
	}
	return color + text + ColorReset
}

// PrintBanner displays the application banner
func (c *Console) PrintBanner(addr string) {
	c.PrintBox("xqlink", []string{
		"象棋 board tracker",
		"UI on http://" + addr,
	})
}

// Orientation implements tracker.Publisher
func (c *Console) Orientation(camp xiangqi.Camp) {
	c.printf("%s playing %s\n", c.Colorize("●", ColorCyan), c.campName(camp))
}

// Position implements tracker.Publisher
func (c *Console) Position(b xiangqi.Board) {
	c.printf("%s\n", c.Colorize(b.String(), ColorDim))
}

// Move implements tracker.Publisher
func (c *Console) Move(ev tracker.MoveEvent) {
	c.printf("%s %s  %s\n", c.campName(ev.Camp), c.Colorize(ev.Notation, ColorBold), c.Colorize(ev.From+ev.To, ColorDim))
}

// Analysis implements tracker.Publisher
func (c *Console) Analysis(res *engine.Result) {
	if res == nil {
		c.printf("%s no analysis for this position\n", c.Colorize("⚠", ColorYellow))
		return
	}
	lines := []string{
		fmt.Sprintf("score %d  depth %d  (%s)", res.Score, res.Depth, res.Source),
	}
	if len(res.Moves) > 0 {
		lines = append(lines, strings.Join(res.Moves, " "))
	}
	if best := res.BestMove(); best != "" {
		lines = append(lines, "best "+best)
	}
	c.PrintBox("analysis", lines)
}

// PrintBox prints text in a box. Widths account for wide glyphs.
func (c *Console) PrintBox(title string, lines []string) {
	// Find max width
	maxWidth := runewidth.StringWidth(title)
	for _, line := range lines {
		if w := runewidth.StringWidth(line); w > maxWidth {
			maxWidth = w
		}
	}

	width := maxWidth + 4 // Padding

	var sb strings.Builder
	sb.WriteString("┌" + strings.Repeat("─", width) + "┐\n")

	padding := (width - runewidth.StringWidth(title)) / 2
	fmt.Fprintf(&sb, "│%s%s%s│\n",
		strings.Repeat(" ", padding),
		c.Colorize(title, ColorBold),
		strings.Repeat(" ", width-padding-runewidth.StringWidth(title)))

	sb.WriteString("├" + strings.Repeat("─", width) + "┤\n")
	for _, line := range lines {
		fmt.Fprintf(&sb, "│ %s │\n", runewidth.FillRight(line, width-2))
	}
	sb.WriteString("└" + strings.Repeat("─", width) + "┘\n")

	c.printf("%s", sb.String())
}

func (c *Console) campName(camp xiangqi.Camp) string {
	switch camp {
	case xiangqi.CampRed:
		return c.Colorize("红", ColorRed)
	case xiangqi.CampBlack:
		return c.Colorize("黑", ColorBold)
	default:
		return "?"
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Package display renders the migrate engine's plan/diff output. IsTerminal,
// ShouldUseColor, and Width are carried over near-verbatim from the
// teacher's internal/ui/terminal.go (same checks, same env vars) — they are
// reused utility code, not domain adaptation. The domain adaptation is in
// Configured and PlanView below, which replace bd's pass/warn glyphs with
// styling suited to a migration plan (pending in one color, pruned in
// another).
package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/opsmigrate/migrate/internal/migrate"
)

// IsTerminal returns true if stdout is connected to a terminal (TTY).
// Carried over from the teacher's internal/ui/terminal.go unchanged.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor is the teacher's ShouldUseColor carried over unchanged:
// NO_COLOR and CLICOLOR=0 disable, CLICOLOR_FORCE forces, otherwise falls
// back to TTY detection.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal()
}

// Width returns the terminal width, or 80 if it cannot be determined.
// Carried over from the teacher's GetWidth unchanged, renamed to fit this
// package's naming.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

var (
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // grey
	prunedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	headingStyle   = lipgloss.NewStyle().Bold(true)
)

func style(s lipgloss.Style, text string) string {
	if !ShouldUseColor() {
		return text
	}
	return s.Render(text)
}

// Configured renders PlanBuilder's configured migration list as a numbered
// listing (spec.md §4.6).
func Configured(names []string) string {
	var b strings.Builder
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n)
	}
	return b.String()
}

// PlanView renders a built plan: the migrations that will run (forward for
// Up, reverse for Down), and the pruned list, with color when appropriate.
func PlanView(kind migrate.PlanKind, pruned []string) string {
	var b strings.Builder

	verb := "applied"
	names := namesOf(kind.Entries)
	entryStyle := pendingStyle
	if kind.Dir == migrate.DirectionDown {
		verb = "rolled back"
		names = reversed(names)
		entryStyle = completedStyle
	}

	if len(names) == 0 {
		fmt.Fprintf(&b, "No migrations are planned to be %s\n", verb)
	} else {
		fmt.Fprintln(&b, style(headingStyle, fmt.Sprintf("Migrations to be %s:", verb)))
		for i, n := range names {
			fmt.Fprintf(&b, "%d. %s\n", i+1, style(entryStyle, n))
		}
	}

	if len(pruned) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, style(headingStyle, "Pruned (previously applied, no longer configured):"))
		for i, n := range pruned {
			fmt.Fprintf(&b, "%d. %s\n", i+1, style(prunedStyle, n))
		}
	}

	return b.String()
}

func namesOf(entries []migrate.MigrationEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

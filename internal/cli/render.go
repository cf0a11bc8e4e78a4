package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
)

var (
	accent  = lipgloss.Color("#0EA5E9")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	passStyle   = lipgloss.NewStyle().Foreground(success)
	failStyle   = lipgloss.NewStyle().Foreground(danger)
	warnStyle   = lipgloss.NewStyle().Foreground(warning)
	errorStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

// renderSummary formats a broadcast result for the operator. Tokens are
// always shortened.
func renderSummary(res *model.BroadcastResult) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Broadcast " + res.BroadcastID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "recipients found: %d\n", res.Recipients)
	if res.Recipients == 0 {
		b.WriteString(dimStyle.Render("no registered devices, nothing sent"))
		b.WriteString("\n")
		return b.String()
	}
	fmt.Fprintf(&b, "successCount: %s\n", passStyle.Render(fmt.Sprint(res.SuccessCount)))
	fmt.Fprintf(&b, "failureCount: %s\n", countStyle(res.FailureCount, failStyle).Render(fmt.Sprint(res.FailureCount)))
	fmt.Fprintf(&b, "pruned: %s\n", countStyle(res.PrunedCount, warnStyle).Render(fmt.Sprint(res.PrunedCount)))

	for _, f := range res.Failures() {
		line := fmt.Sprintf("  x %s: %s", push.RedactToken(f.Token), f.Error)
		if f.Pruned {
			line += " (removed)"
		}
		b.WriteString(failStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func countStyle(n int, nonZero lipgloss.Style) lipgloss.Style {
	if n == 0 {
		return dimStyle
	}
	return nonZero
}

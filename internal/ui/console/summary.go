// Package console renders the human-facing run header, summary block and
// fatal messages. The output is for people, not parsers.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"blp-icon-converter/internal/convert"
)

const barWidth = 28

type Printer struct {
	out   io.Writer
	color bool
	theme theme
	bar   progress.Model
}

func New(out io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		out:   out,
		color: color,
		theme: newTheme(r),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

func (p *Printer) write(s string) {
	if !p.color {
		s = ansi.Strip(s)
	}
	_, _ = io.WriteString(p.out, s)
}

func (p *Printer) Header(cfg convert.Config, tasks int) {
	var b strings.Builder
	b.WriteString(p.theme.Title.Render(fmt.Sprintf("Converting %d icon(s) from BLP to PNG", tasks)))
	b.WriteString("\n")
	b.WriteString(p.theme.Muted.Render("  source: " + cfg.SourceRoot))
	b.WriteString("\n")
	b.WriteString(p.theme.Muted.Render("  dest:   " + cfg.DestDir))
	b.WriteString("\n")
	if cfg.DryRun {
		b.WriteString(p.theme.Skipped.Render("  dry run: nothing will be written"))
		b.WriteString("\n")
	}
	p.write(b.String())
}

func (p *Printer) Summary(stats convert.RunStats) {
	p.write(p.RenderSummary(stats))
}

// Fatal prints a precondition failure and an optional remedy.
func (p *Printer) Fatal(err error, hint string) {
	msg := p.theme.Error.Render("Error: "+err.Error()) + "\n"
	if hint != "" {
		msg += p.theme.Hint.Render(hint) + "\n"
	}
	p.write(msg)
}

type summaryRow struct {
	label string
	value string
	style lipgloss.Style
}

func (p *Printer) RenderSummary(stats convert.RunStats) string {
	rows := []summaryRow{
		{"Converted:", fmt.Sprint(stats.Converted), p.theme.Converted},
		{"Skipped:", fmt.Sprint(stats.Skipped), p.theme.Skipped},
		{"Not found/Failed:", fmt.Sprint(stats.Missed()), p.theme.Missed},
	}
	if stats.BytesWritten > 0 {
		rows = append(rows, summaryRow{"Written:", humanize.IBytes(uint64(stats.BytesWritten)), p.theme.Muted})
	}

	labelWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, ansi.StringWidth(row.label))
	}
	lines := []string{p.theme.Title.Render("Summary")}
	for _, row := range rows {
		pad := strings.Repeat(" ", labelWidth-ansi.StringWidth(row.label)+1)
		lines = append(lines, p.theme.Label.Render(row.label)+pad+row.style.Render(row.value))
	}
	if stats.Total > 0 {
		done := float64(stats.Converted+stats.Skipped) / float64(stats.Total)
		lines = append(lines, p.bar.ViewAs(done)+" "+p.theme.Muted.Render(fmt.Sprintf("%d/%d in place", stats.Converted+stats.Skipped, stats.Total)))
	}

	out := p.theme.Panel.Render(strings.Join(lines, "\n")) + "\n"
	if stats.Interrupted {
		out += p.theme.Skipped.Render("Interrupted before all tasks ran.") + "\n"
	}
	switch {
	case stats.DryRun:
		out += p.theme.Skipped.Render(fmt.Sprintf("Dry run: %d icon(s) would be converted.", stats.Converted)) + "\n"
	case stats.Converted > 0:
		out += p.theme.Success.Render("Icons converted successfully.") + "\n"
	}
	return out
}

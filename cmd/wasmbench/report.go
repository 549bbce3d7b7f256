package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasmbench/bench"
	"github.com/wippyai/wasmbench/config"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type summaryRow struct {
	label, value string
	fail         bool
}

func summaryRows(test *bench.Test, cfg config.Config, st *stats) []summaryRow {
	elapsed := st.duration()
	events := st.events.Value()
	failures := st.failures.Value()

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(events) / secs
	}

	return []summaryRow{
		{label: "module", value: test.ShortName},
		{label: "runtime", value: cfg.Runtime},
		{label: "threads", value: fmt.Sprint(cfg.Threads)},
		{label: "buffer", value: config.FormatSize(uint64(cfg.Limits.BufferSize))},
		{label: "time", value: elapsed.Round(1e6).String()},
		{label: "events", value: fmt.Sprint(events)},
		{label: "events/s", value: fmt.Sprintf("%.2f", rate)},
		{label: "failures", value: fmt.Sprint(failures), fail: failures > 0},
	}
}

// printSummary styles the report when w is the terminal, plain otherwise.
func printSummary(w io.Writer, test *bench.Test, cfg config.Config, st *stats) {
	rows := summaryRows(test, cfg, st)

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		for _, r := range rows {
			fmt.Fprintf(w, "%-10s %s\n", r.label+":", r.value)
		}
		return
	}

	width := 60
	if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw < width {
		width = tw
	}

	var b strings.Builder
	b.WriteString(headerStyle.Width(width).Render("wasmbench"))
	b.WriteByte('\n')
	for _, r := range rows {
		style := valueStyle
		if r.fail {
			style = failStyle
		}
		b.WriteString(labelStyle.Render(r.label))
		b.WriteString(style.Render(r.value))
		b.WriteByte('\n')
	}
	fmt.Fprint(w, b.String())
}

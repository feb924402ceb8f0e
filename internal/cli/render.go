package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rshade/stagehand/internal/scaffolder"
	"github.com/rshade/stagehand/internal/search"
)

func headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Padding(0, 1)
}

func cellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

// renderTable writes rows as a bordered table on a terminal and as
// tab-separated columns otherwise.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	if !isWriterTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle()
			}
			return cellStyle()
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// renderActions lists actions with their dry-run support and input fields.
func renderActions(w io.Writer, actions []*scaffolder.Action) error {
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		inputs := make([]string, 0, len(a.Schema.Input))
		for _, f := range a.Schema.Input {
			name := f.Name
			if f.Required {
				name += "*"
			}
			inputs = append(inputs, name)
		}
		rows = append(rows, []string{a.ID, yesNo(a.SupportsDryRun), strings.Join(inputs, ", "), a.Description})
	}
	return renderTable(w, []string{"ACTION", "DRY RUN", "INPUT", "DESCRIPTION"}, rows)
}

// renderCollateResults summarises collation runs.
func renderCollateResults(w io.Writer, sink string, results []search.CollateResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Type,
			fmt.Sprint(r.Documents),
			fmt.Sprint(r.Skipped),
			r.Duration.Round(time.Millisecond).String(),
			sink,
		})
	}
	return renderTable(w, []string{"TYPE", "DOCUMENTS", "SKIPPED", "DURATION", "SINK"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

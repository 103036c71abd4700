package ui

import (
	"strconv"

	"github.com/bnema/vkshell/internal/wayland"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// UsedMarker flags rows the shell binds.
const UsedMarker = "◀"

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle))
}

// GlobalsTable lists advertised globals. Rows whose interface is used are
// marked and highlighted.
func GlobalsTable(globals []wayland.Global, used func(iface string) bool) string {
	rows := make([][]string, 0, len(globals))
	for _, g := range globals {
		marker := ""
		if used(g.Interface) {
			marker = UsedMarker
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(g.Name), 10),
			g.Interface,
			strconv.FormatUint(uint64(g.Version), 10),
			marker,
		})
	}

	t := newTable().
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
			case rows[row][3] != "":
				return lipgloss.NewStyle().Foreground(ColorSuccess).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
			}
		}).
		Headers("NAME", "INTERFACE", "VERSION", "USED").
		Rows(rows...)
	return t.String()
}

// SettingsTable renders key/value pairs under a section heading.
func SettingsTable(section string, rows [][]string) string {
	t := newTable().
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
			case col == 0:
				return lipgloss.NewStyle().Foreground(ColorInfo).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
			}
		}).
		Headers(section, "VALUE").
		Rows(rows...)
	return t.String()
}

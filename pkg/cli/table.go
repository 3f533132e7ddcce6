package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table is implemented by results that have a tabular rendering.
type Table interface {
	TableHeader() []string
	TableRows() [][]string
}

// Theme defines the color scheme for tables.
type Theme struct {
	Primary lipgloss.Color // Header and border color
	Dim     lipgloss.Color // Cell text color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
}

// DefaultStyles are derived from DefaultTheme.
var DefaultStyles = NewStyles(DefaultTheme)

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Padding(0, 1),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// RenderTable renders t with rounded borders.
func RenderTable(s Styles, t Table) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		}).
		Headers(t.TableHeader()...).
		Rows(t.TableRows()...).
		Render()
}

// KV is a two-column key/value table.
type KV [][2]string

func (kv KV) TableHeader() []string { return []string{"KEY", "VALUE"} }

func (kv KV) TableRows() [][]string {
	rows := make([][]string, len(kv))
	for i, p := range kv {
		rows[i] = []string{p[0], p[1]}
	}
	return rows
}

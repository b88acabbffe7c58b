package util

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	ColorCritical = lipgloss.Color("#cc0000")
	ColorWarning  = lipgloss.Color("#e69138")
	ColorOk       = lipgloss.Color("#04B575")
	ColorUnknown  = lipgloss.Color("#68228B")
)

// KeyValuePair is one row of PrintKeyValues. Value is passed to fmt.Sprintf
// with Format and to Style, which picks the colour for the rendered value.
type KeyValuePair struct {
	Key    string
	Format string
	Value  []any
	Style  func([]any) lipgloss.Style
}

func OkStyle([]any) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorOk)
}

// PrintKeyValues renders pairs as an aligned "Key: value" block.
func PrintKeyValues(pairs []KeyValuePair) string {
	keyWidth := 0
	for _, pair := range pairs {
		if w := lipgloss.Width(pair.Key) + 1; w > keyWidth {
			keyWidth = w
		}
	}

	keyStyle := lipgloss.NewStyle().Bold(true).Width(keyWidth)

	rows := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		value := fmt.Sprintf(pair.Format, pair.Value...)
		if pair.Style != nil {
			value = pair.Style(pair.Value).Render(value)
		}

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			keyStyle.Render(pair.Key+":"),
			" ",
			value,
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

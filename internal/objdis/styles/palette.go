package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Dark theme colours.
const (
	Foreground = "#D4D4D4"
	Background = "#1E1E1E"
	Muted      = "#858585"
	InlineCode = "#EACD53"
	Label      = "#FFD700"
	HexByte    = "#B5CEA8"
	Masked     = "#FF5F87"
	Annotation = "#6A9955"
)

var (
	// LabelStyle renders label lines in the browser.
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Label)).Bold(true)

	// OffsetStyle renders the offset column.
	OffsetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Muted))

	// BytesStyle renders literal bytes.
	BytesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(HexByte))

	// MaskedStyle renders bytes hidden by a relocation.
	MaskedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Masked))

	// AnnotationStyle renders the field description after a word.
	AnnotationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Annotation)).Italic(true)

	SelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(charmtone.Zest.Hex())).
			Background(lipgloss.Color(charmtone.Charple.Hex())).
			Padding(0, 1)

	MenuStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for panel titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// TableHeaderStyle is used for the column headers of the message table.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorMagenta).
	Padding(0, 1)

// CellStyle is the base style for message table cells.
var CellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// DimCellStyle is used for the row number and timestamp columns.
var DimCellStyle = CellStyle.
	Foreground(ColorGray)

// LabelStyle renders field labels in the detail panel.
var LabelStyle = lipgloss.NewStyle().
	Bold(true).
	PaddingRight(2)

// DetailPanelStyle wraps the header panel of a single message.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// BodyPanelStyle wraps the message body.
var BodyPanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// NoticeStyle is used for notices such as a missing body.
var NoticeStyle = lipgloss.NewStyle().
	Italic(true)

// ErrorStyle is used for user-facing error lines.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SourceLabelStyle returns a color-coded style for the given source type label.
func SourceLabelStyle(sourceType string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch sourceType {
	case "outlook":
		return base.Foreground(ColorBlue)
	case "thunderbird":
		return base.Foreground(ColorOrange)
	case "imap", "pop3":
		return base.Foreground(ColorGreen)
	case "mbox":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}

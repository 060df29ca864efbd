// Package render turns email records into terminal output: the listing
// table, the detail panel and the body panel.
package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/theme"
)

const (
	listTimeLayout   = "2006-01-02 15:04"
	detailTimeLayout = "2006-01-02 15:04:05"
	ellipsis         = "..."
)

// Column is one column of the listing table.
type Column struct {
	Title string
	Width int
}

// Columns are the listing table columns, in order.
var Columns = []Column{
	{Title: "No", Width: 4},
	{Title: "Received At", Width: 17},
	{Title: "Subject", Width: 40},
	{Title: "Sender", Width: 20},
	{Title: "Sender Email", Width: 25},
	{Title: "To", Width: 20},
}

// Shorten truncates s to at most width runes, replacing the tail with
// "..." when it does not fit. Line breaks are flattened to spaces.
func Shorten(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return string(runes[:width])
	}
	return string(runes[:width-len(ellipsis)]) + ellipsis
}

// Rows returns the listing cells for emails, already shortened to the
// column widths. Row numbers start at 1.
func Rows(emails []model.Email) [][]string {
	rows := make([][]string, 0, len(emails))
	for i, e := range emails {
		received := ""
		if e.ReceivedAt != nil {
			received = e.ReceivedAt.Format(listTimeLayout)
		}
		cells := []string{
			strconv.Itoa(i + 1),
			received,
			e.Subject,
			e.SenderName,
			e.SenderEmail,
			e.To,
		}
		for c := range cells {
			cells[c] = Shorten(cells[c], Columns[c].Width)
		}
		rows = append(rows, cells)
	}
	return rows
}

// EmailTable renders the listing table for emails.
func EmailTable(emails []model.Email) string {
	headers := make([]string, len(Columns))
	for i, c := range Columns {
		headers[i] = c.Title
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		Rows(Rows(emails)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			// Width includes the one-cell padding on each side.
			width := Columns[col].Width + 2
			switch {
			case row == table.HeaderRow:
				return theme.TableHeaderStyle.Width(width)
			case col <= 1:
				return theme.DimCellStyle.Width(width)
			default:
				return theme.CellStyle.Width(width)
			}
		})

	return t.Render()
}

// DetailPanel renders the "Email Info" panel for a resolved email.
func DetailPanel(e model.Email) string {
	type field struct{ label, value string }

	received := ""
	if e.ReceivedAt != nil {
		received = e.ReceivedAt.Format(detailTimeLayout)
	}

	fields := []field{
		{"Subject", e.Subject},
		{"From", sender(e)},
		{"Received At", received},
		{"To", e.To},
	}
	if e.CC != "" {
		fields = append(fields, field{"CC", e.CC})
	}
	if names := e.AttachmentNames(); len(names) > 0 {
		fields = append(fields, field{"Attachments", strings.Join(names, ", ")})
	}

	labelWidth := 0
	for _, f := range fields {
		labelWidth = max(labelWidth, lipgloss.Width(f.label+":"))
	}
	label := theme.LabelStyle.Width(labelWidth + theme.LabelStyle.GetPaddingRight())

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(f.label+":"), f.value))
	}

	return panel(theme.DetailPanelStyle, "Email Info", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// BodyPanel renders the "Body" panel, or a notice when the email has no
// body.
func BodyPanel(e model.Email) string {
	if strings.TrimSpace(e.Body) == "" {
		return panel(theme.BodyPanelStyle, "Body", theme.NoticeStyle.Render(NoBody))
	}
	return panel(theme.BodyPanelStyle, "Body", strings.TrimRight(e.Body, "\n"))
}

// NoBody is shown in place of an empty body.
const NoBody = "No body available."

func panel(style lipgloss.Style, title, content string) string {
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(title),
		"",
		content,
	))
}

func sender(e model.Email) string {
	switch {
	case e.SenderEmail == "":
		return e.SenderName
	case e.SenderName == "":
		return "<" + e.SenderEmail + ">"
	default:
		return e.SenderName + " <" + e.SenderEmail + ">"
	}
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/mp4trim/internal/display"
	"github.com/forPelevin/mp4trim/internal/domain/timecode"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#06B6D4")
	accentColor    = lipgloss.Color("#10B981")
	dangerColor    = lipgloss.Color("#EF4444")
	dimTextColor   = lipgloss.Color("#64748B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 2).
			MarginBottom(1)

	fileStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(dimTextColor).
			Padding(0, 1).
			Width(16)

	focusedFieldStyle = fieldStyle.
				BorderForeground(secondaryColor)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dangerColor)
)

const barWidth = 40

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.ws.Board.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("mp4trim"))
	b.WriteString("\n")

	if !s.PlaybackVisible {
		b.WriteString(dimStyle.Render("No video loaded. Press o to open an MP4 file."))
		b.WriteString("\n\n")
	} else {
		b.WriteString(fileStyle.Render(s.FileName))
		b.WriteString("\n")
		state := "paused"
		if m.ws.Player.Playing() {
			state = "playing"
		}
		fmt.Fprintf(&b, "%s %s / %s  %s\n\n",
			timeline(m.ws.Player.Position(), m.ws.Player.Duration()),
			s.ElapsedText, s.DurationText, dimStyle.Render(state))
	}

	start, end := fieldStyle, fieldStyle
	switch m.mode {
	case modeEditStart:
		start = focusedFieldStyle
	case modeEditEnd:
		end = focusedFieldStyle
	}
	fields := []string{start.Render("start " + s.StartField), " ", end.Render("end " + s.EndField)}
	if s.FieldMax > 0 {
		fields = append(fields, " ", dimStyle.Render("max "+timecode.Fixed1(s.FieldMax)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, fields...))
	b.WriteString("\n")

	if s.Progress.Visible {
		fmt.Fprintf(&b, "%s %s\n", progressBar(s.Progress.Percent), s.Progress.Label)
	}

	if m.mode == modeOpen {
		fmt.Fprintf(&b, "open: %s▏\n", m.input)
	}

	if msg := s.LastMessage; msg != nil {
		style := successStyle
		if msg.Level == display.LevelAlert {
			style = errorStyle
		}
		b.WriteString(style.Render(msg.Text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(helpLine(m.mode)))
	return b.String()
}

func helpLine(md mode) string {
	switch md {
	case modeEditStart, modeEditEnd:
		return "type a time • tab next field • enter done"
	case modeOpen:
		return "type a path • enter open • esc cancel"
	default:
		return "space play/pause • ←/→ 1s • shift+←/→ 10s • s/e mark • tab edit • p preview • c cut • o open • q quit"
	}
}

func timeline(pos, dur float64) string {
	if dur <= 0 {
		return "[" + strings.Repeat("─", barWidth) + "]"
	}
	at := int(pos / dur * float64(barWidth-1))
	if at < 0 {
		at = 0
	}
	if at > barWidth-1 {
		at = barWidth - 1
	}
	return "[" + strings.Repeat("─", at) + "●" + strings.Repeat("─", barWidth-1-at) + "]"
}

func progressBar(pct int) string {
	filled := pct * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

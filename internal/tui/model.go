// Package tui is the interactive screen: it renders the board and maps keys to
// loader and trimmer operations.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forPelevin/mp4trim/internal/pipeline"
	"github.com/forPelevin/mp4trim/internal/types"
)

const tickInterval = 100 * time.Millisecond

type mode int

const (
	modeNormal mode = iota
	modeEditStart
	modeEditEnd
	modeOpen
)

type (
	tickMsg    time.Time
	loadedMsg  struct{ err error }
	cutDoneMsg struct {
		res types.CutResult
		err error
	}
)

type Model struct {
	ws  *pipeline.Workspace
	ctx context.Context

	mode    mode
	input   string // path being typed in modeOpen
	cutting bool
	initial string

	width    int
	quitting bool
}

// New builds the screen over ws. If path is not empty it is opened on start.
func New(ctx context.Context, ws *pipeline.Workspace, path string) Model {
	return Model{ws: ws, ctx: ctx, initial: path}
}

func (m Model) Init() tea.Cmd {
	if m.initial != "" {
		return tea.Batch(tickCmd(), m.openCmd(m.initial))
	}
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) openCmd(path string) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: ws.Loader.SelectFile(ctx, types.FileHandle{Path: path})}
	}
}

func (m Model) cutCmd() tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		res, err := ws.Trimmer.Cut(ctx)
		return cutDoneMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.ws.Loader.OnPositionChange()
		return m, tickCmd()

	case loadedMsg:
		// the board already carries the alert on failure
		return m, nil

	case cutDoneMsg:
		m.cutting = false
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.mode {
		case modeEditStart, modeEditEnd:
			return m.updateField(msg)
		case modeOpen:
			return m.updateOpen(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.ws.Trimmer.StopPreview()
	return m, tea.Quit
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	player := m.ws.Player
	switch msg.String() {
	case "q":
		return m.quit()
	case " ", "space":
		if player.Playing() {
			m.ws.Trimmer.StopPreview()
			player.Pause()
		} else {
			player.Play()
		}
	case "left":
		m.seekBy(-1)
	case "right":
		m.seekBy(1)
	case "shift+left":
		m.seekBy(-10)
	case "shift+right":
		m.seekBy(10)
	case "s":
		m.ws.Trimmer.MarkStart()
	case "e":
		m.ws.Trimmer.MarkEnd()
	case "tab":
		m.mode = modeEditStart
	case "p":
		_ = m.ws.Trimmer.Preview(m.ctx)
	case "c":
		if m.cutting {
			return m, nil
		}
		m.cutting = true
		return m, m.cutCmd()
	case "o":
		m.mode = modeOpen
		m.input = ""
	case "esc":
		m.ws.Board.DismissMessage()
	}
	return m, nil
}

func (m Model) seekBy(delta float64) {
	p := m.ws.Player
	p.Seek(p.Position() + delta)
	m.ws.Loader.OnPositionChange()
}

func (m Model) updateField(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	get, set := m.ws.Board.StartField, m.ws.Board.SetStartField
	if m.mode == modeEditEnd {
		get, set = m.ws.Board.EndField, m.ws.Board.SetEndField
	}

	switch msg.Type {
	case tea.KeyTab:
		if m.mode == modeEditStart {
			m.mode = modeEditEnd
		} else {
			m.mode = modeNormal
		}
	case tea.KeyEnter, tea.KeyEsc:
		m.mode = modeNormal
	case tea.KeyBackspace:
		if v := []rune(get()); len(v) > 0 {
			set(string(v[:len(v)-1]))
		}
	case tea.KeyRunes:
		set(get() + string(msg.Runes))
	}
	return m, nil
}

func (m Model) updateOpen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
	case tea.KeyEnter:
		m.mode = modeNormal
		if m.input == "" {
			return m, nil
		}
		return m, m.openCmd(m.input)
	case tea.KeyBackspace:
		if v := []rune(m.input); len(v) > 0 {
			m.input = string(v[:len(v)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// ABOUTME: Terminal monitor for the scheduler's status snapshots
// ABOUTME: Wraps a bubbletea program; updated by a channel fed from the scheduler
package monitor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"mtcbridge/internal/scheduler"
)

// snapshotMsg carries a scheduler.Snapshot into the bubbletea update loop.
type snapshotMsg scheduler.Snapshot

type model struct {
	state     string
	songID    int
	nextFrame int64
	seen      int
}

// NewTUI creates a bubbletea program that renders scheduler snapshots.
// Feed it with PumpTUI.
func NewTUI() *tea.Program {
	return tea.NewProgram(model{state: "invalid"}, tea.WithAltScreen())
}

// PumpTUI forwards snapshots from src into p until src closes.
func PumpTUI(p *tea.Program, src <-chan scheduler.Snapshot) {
	for snap := range src {
		p.Send(snapshotMsg(snap))
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case snapshotMsg:
		m.state = msg.State.String()
		m.songID = msg.SongID
		m.nextFrame = msg.NextFrame
		m.seen++
	}
	return m, nil
}

func (m model) View() string {
	return fmt.Sprintf(
		"mtcbridge monitor\n\nstate:      %s\nsong id:    %d\nnext frame: %d\nupdates:    %d\n\n(q to quit)\n",
		m.state, m.songID, m.nextFrame, m.seen,
	)
}

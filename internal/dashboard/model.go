// Package dashboard renders a terminal dashboard over the engine's published
// snapshots. It is read-only: the engine is the single writer of state.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// DefaultRefreshInterval is how often the dashboard polls the engine.
const DefaultRefreshInterval = time.Second

// SnapshotFunc returns the current engine snapshot.
type SnapshotFunc func() types.EngineSnapshot

// Model is the Bubble Tea model for the trading dashboard.
type Model struct {
	snapshotFn SnapshotFunc
	refresh    time.Duration

	snapshot       types.EngineSnapshot
	positionsTable table.Model
	width          int
	height         int

	// onQuit is invoked once when the user quits the dashboard.
	onQuit func()
}

// NewModel creates a dashboard model polling snapshotFn.
func NewModel(snapshotFn SnapshotFunc, onQuit func()) Model {
	return Model{
		snapshotFn:     snapshotFn,
		refresh:        DefaultRefreshInterval,
		snapshot:       snapshotFn(),
		positionsTable: NewPositionsTable(),
		width:          0,
		height:         0,
		onQuit:         onQuit,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.onQuit != nil {
				m.onQuit()
			}

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.positionsTable.SetWidth(msg.Width)

		return m, nil

	case tickMsg:
		return m, tea.Batch(
			func() tea.Msg { return snapshotMsg{Snapshot: m.snapshotFn()} },
			m.tick(),
		)

	case snapshotMsg:
		m.snapshot = msg.Snapshot
		m.positionsTable = UpdatePositionRows(m.positionsTable, m.snapshot.OpenPositions)

		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return RenderDashboard(m.snapshot, m.positionsTable)
}

// Run starts the dashboard and blocks until the user quits.
func Run(snapshotFn SnapshotFunc, onQuit func()) error {
	program := tea.NewProgram(NewModel(snapshotFn, onQuit), tea.WithAltScreen())

	_, err := program.Run()

	return err
}

package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/stretchr/testify/suite"
)

type DashboardTestSuite struct {
	suite.Suite
}

func sampleSnapshot() types.EngineSnapshot {
	return types.EngineSnapshot{
		Status: types.EngineStatusRunning,
		Account: types.AccountSnapshot{
			Balance: 10000,
			Equity:  10100,
		},
		Session: types.SessionStats{
			StartTime:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			StartBalance:  10000,
			PeakEquity:    10100,
			SessionTrades: 3,
			DailyTrades:   3,
		},
		Signals: types.SignalStats{
			Total: 10,
			Buys:  2,
			Sells: 1,
			Holds: 7,
		},
		OpenPositions: []types.Position{
			{
				Ticket:     "T-1",
				Symbol:     "EURUSD",
				Side:       types.PositionSideBuy,
				Volume:     0.10,
				EntryPrice: 1.1000,
				StopLoss:   1.0985,
				TakeProfit: 1.1030,
			},
		},
		RecentSignals: []types.Signal{
			{
				Symbol:     "EURUSD",
				Time:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				Action:     types.SignalActionBuy,
				Confidence: 95,
				EntryPrice: 1.1000,
			},
		},
		UpdatedAt: time.Now(),
	}
}

func (suite *DashboardTestSuite) TestNewModelTakesInitialSnapshot() {
	m := NewModel(sampleSnapshot, nil)

	suite.Equal(types.EngineStatusRunning, m.snapshot.Status)
	suite.InDelta(10000, m.snapshot.Account.Balance, 1e-9)
}

func (suite *DashboardTestSuite) TestSnapshotMsgUpdatesModel() {
	m := NewModel(sampleSnapshot, nil)

	next := sampleSnapshot()
	next.Status = types.EngineStatusHalted

	updated, _ := m.Update(snapshotMsg{Snapshot: next})
	model := updated.(Model)

	suite.Equal(types.EngineStatusHalted, model.snapshot.Status)
	suite.Len(model.positionsTable.Rows(), 1)
}

func (suite *DashboardTestSuite) TestQuitKeyInvokesCallback() {
	quitCalled := false
	m := NewModel(sampleSnapshot, func() { quitCalled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	suite.True(quitCalled)
	suite.NotNil(cmd)
}

func (suite *DashboardTestSuite) TestViewContainsSections() {
	m := NewModel(sampleSnapshot, nil)
	m.positionsTable = UpdatePositionRows(m.positionsTable, m.snapshot.OpenPositions)

	view := m.View()

	suite.Contains(view, "argo-scalper")
	suite.Contains(view, "Account")
	suite.Contains(view, "Session")
	suite.Contains(view, "Signals")
	suite.Contains(view, "Open Positions (1)")
	suite.Contains(view, "EURUSD")
	suite.Contains(view, "q: quit")
}

func (suite *DashboardTestSuite) TestUpdatePositionRows() {
	t := NewPositionsTable()
	t = UpdatePositionRows(t, sampleSnapshot().OpenPositions)

	rows := t.Rows()
	suite.Require().Len(rows, 1)
	suite.Equal("T-1", rows[0][0])
	suite.Equal("EURUSD", rows[0][1])
	suite.Equal("BUY", rows[0][2])
	suite.Equal("0.10", rows[0][3])
}

func (suite *DashboardTestSuite) TestFormatMarginLevel() {
	suite.Equal("n/a", formatMarginLevel(0))
	suite.Equal("250.0%", formatMarginLevel(250))
}

func (suite *DashboardTestSuite) TestFormatSignedAmount() {
	suite.Equal("100.00", FormatSignedAmount(100, 0))
	suite.Equal("110.00 ▲", FormatSignedAmount(110, 100))
	suite.Equal("90.00 ▼", FormatSignedAmount(90, 100))
	suite.Equal("100.00", FormatSignedAmount(100, 100))
}

func (suite *DashboardTestSuite) TestRenderRecentSignalsEmpty() {
	suite.Contains(renderRecentSignals(nil), "(none)")
}

func TestDashboardTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardTestSuite))
}

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// NewPositionsTable creates the open-positions table.
func NewPositionsTable() table.Model {
	columns := []table.Column{
		{Title: "Ticket", Width: 12},
		{Title: "Symbol", Width: 10},
		{Title: "Side", Width: 6},
		{Title: "Volume", Width: 10},
		{Title: "Entry", Width: 12},
		{Title: "Stop", Width: 12},
		{Title: "Target", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)

	return t
}

// UpdatePositionRows rebuilds the table rows from open positions.
func UpdatePositionRows(t table.Model, positions []types.Position) table.Model {
	rows := make([]table.Row, 0, len(positions))

	for _, pos := range positions {
		rows = append(rows, table.Row{
			pos.Ticket,
			pos.Symbol,
			string(pos.Side),
			fmt.Sprintf("%.2f", pos.Volume),
			fmt.Sprintf("%.5f", pos.EntryPrice),
			fmt.Sprintf("%.5f", pos.StopLoss),
			fmt.Sprintf("%.5f", pos.TakeProfit),
		})
	}

	t.SetRows(rows)

	return t
}

// RenderDashboard renders the full dashboard view.
func RenderDashboard(snap types.EngineSnapshot, positions table.Model) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("argo-scalper"))
	b.WriteString("  ")
	b.WriteString(FormatStatus(snap.Status))
	b.WriteString("\n\n")

	b.WriteString(SectionStyle.Render("Account"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Balance: %s   Equity: %s   Margin: %.2f   Margin Level: %s\n",
		FormatSignedAmount(snap.Account.Balance, snap.Session.StartBalance),
		FormatSignedAmount(snap.Account.Equity, snap.Session.PeakEquity),
		snap.Account.Margin,
		formatMarginLevel(snap.Account.MarginLevel),
	))
	b.WriteString("\n")

	b.WriteString(SectionStyle.Render("Session"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Started: %s   Trades: %d (today: %d)",
		snap.Session.StartTime.Format("15:04:05"),
		snap.Session.SessionTrades,
		snap.Session.DailyTrades,
	))

	if snap.Session.EmergencyStopped {
		b.WriteString("   ")
		b.WriteString(ErrorStyle.Render("EMERGENCY STOP"))
	}

	if snap.Session.TradingHalted {
		b.WriteString("   ")
		b.WriteString(WarnStyle.Render("HALTED"))
	}

	b.WriteString("\n\n")

	b.WriteString(SectionStyle.Render("Signals"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Total: %d   Buys: %d   Sells: %d   Holds: %d   Invalid: %d   Avg Confidence: %.1f\n",
		snap.Signals.Total,
		snap.Signals.Buys,
		snap.Signals.Sells,
		snap.Signals.Holds,
		snap.Signals.Invalid,
		snap.Signals.MeanConfidence,
	))
	b.WriteString("\n")

	b.WriteString(SectionStyle.Render(fmt.Sprintf("Open Positions (%d)", len(snap.OpenPositions))))
	b.WriteString("\n")
	b.WriteString(positions.View())
	b.WriteString("\n\n")

	b.WriteString(SectionStyle.Render("Recent Signals"))
	b.WriteString("\n")
	b.WriteString(renderRecentSignals(snap.RecentSignals))
	b.WriteString("\n")

	b.WriteString(HelpStyle.Render("q: quit"))
	b.WriteString("\n")

	return b.String()
}

func formatMarginLevel(level float64) string {
	if level == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.1f%%", level)
}

// renderRecentSignals shows the last few signals, newest first.
func renderRecentSignals(signals []types.Signal) string {
	const maxShown = 5

	if len(signals) == 0 {
		return "  (none)\n"
	}

	var b strings.Builder

	shown := 0

	for i := len(signals) - 1; i >= 0 && shown < maxShown; i-- {
		s := signals[i]
		b.WriteString(fmt.Sprintf("  %s %-8s %-12s conf=%.0f  entry=%.5f\n",
			s.Time.Format("15:04:05"),
			s.Symbol,
			string(s.Action),
			s.Confidence,
			s.EntryPrice,
		))

		shown++
	}

	return b.String()
}

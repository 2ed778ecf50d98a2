package types

// AccountSnapshot represents the broker-reported account state at one instant.
type AccountSnapshot struct {
	// Balance is the current cash balance (excluding unrealized P&L)
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is the total account value (balance + unrealized P&L)
	Equity float64 `json:"equity" yaml:"equity"`
	// Margin is the margin currently in use
	Margin float64 `json:"margin" yaml:"margin"`
	// MarginLevel is equity / used margin * 100. A value of exactly 0 means
	// "not applicable" (no margin exposure) rather than a solvency problem.
	MarginLevel float64 `json:"margin_level" yaml:"margin_level"`
}

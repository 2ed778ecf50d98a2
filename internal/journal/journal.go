// Package journal persists trade records to DuckDB and summarizes them for
// session stats exports.
package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Recorder persists trade records.
type Recorder interface {
	Record(trade types.TradeRecord) error
	Close() error
}

// Filter narrows a trade query. Zero values mean no constraint.
type Filter struct {
	Symbol string
	Status types.TradeStatus
	Start  time.Time
	End    time.Time
	Limit  int
}

// Stats summarizes the journal contents.
type Stats struct {
	TotalTrades   int     `yaml:"total_trades"`
	Filled        int     `yaml:"filled"`
	Rejected      int     `yaml:"rejected"`
	Failed        int     `yaml:"failed"`
	TotalVolume   float64 `yaml:"total_volume"`
	AvgConfidence float64 `yaml:"avg_confidence"`
}

// Journal stores trade records in a DuckDB database file.
type Journal struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewJournal opens (or creates) the journal database at dbPath. Pass
// ":memory:" for an ephemeral journal.
func NewJournal(dbPath string, log *logger.Logger) (*Journal, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to create journal directory", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to open journal database", err)
	}

	j := &Journal{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: log,
	}

	if err := j.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

func (j *Journal) initialize() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			ticket TEXT,
			symbol TEXT,
			side TEXT,
			volume DOUBLE,
			entry_price DOUBLE,
			stop_loss DOUBLE,
			take_profit DOUBLE,
			confidence DOUBLE,
			executed_at TIMESTAMP,
			status TEXT,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to create trades table", err)
	}

	return nil
}

// Record validates and persists one trade record.
func (j *Journal) Record(trade types.TradeRecord) error {
	if err := trade.Validate(); err != nil {
		return err
	}

	_, err := j.sq.
		Insert("trades").
		Columns("id", "ticket", "symbol", "side", "volume", "entry_price",
			"stop_loss", "take_profit", "confidence", "executed_at", "status", "reason").
		Values(trade.ID, trade.Ticket, trade.Symbol, string(trade.Side), trade.Volume,
			trade.EntryPrice, trade.StopLoss, trade.TakeProfit, trade.Confidence,
			trade.ExecutedAt, string(trade.Status), trade.Reason).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert trade record", err)
	}

	return nil
}

// Trades returns records matching the filter, oldest first.
func (j *Journal) Trades(filter Filter) ([]types.TradeRecord, error) {
	query := j.sq.
		Select("id", "ticket", "symbol", "side", "volume", "entry_price",
			"stop_loss", "take_profit", "confidence", "executed_at", "status", "reason").
		From("trades").
		OrderBy("executed_at ASC")

	if filter.Symbol != "" {
		query = query.Where(squirrel.Eq{"symbol": filter.Symbol})
	}

	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": string(filter.Status)})
	}

	if !filter.Start.IsZero() {
		query = query.Where(squirrel.GtOrEq{"executed_at": filter.Start})
	}

	if !filter.End.IsZero() {
		query = query.Where(squirrel.LtOrEq{"executed_at": filter.End})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(j.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trade records", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var (
			trade        types.TradeRecord
			side, status string
		)

		err := rows.Scan(&trade.ID, &trade.Ticket, &trade.Symbol, &side, &trade.Volume,
			&trade.EntryPrice, &trade.StopLoss, &trade.TakeProfit, &trade.Confidence,
			&trade.ExecutedAt, &status, &trade.Reason)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade record", err)
		}

		trade.Side = types.PositionSide(side)
		trade.Status = types.TradeStatus(status)

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read trade records", err)
	}

	return trades, nil
}

// Stats aggregates the journal into summary statistics.
func (j *Journal) Stats() (Stats, error) {
	query := j.sq.
		Select(
			"COUNT(*)",
			"COALESCE(SUM(CASE WHEN status = 'FILLED' THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN status = 'REJECTED' THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(volume), 0)",
			"COALESCE(AVG(confidence), 0)",
		).
		From("trades").
		RunWith(j.db)

	var stats Stats

	err := query.QueryRow().Scan(&stats.TotalTrades, &stats.Filled, &stats.Rejected,
		&stats.Failed, &stats.TotalVolume, &stats.AvgConfidence)
	if err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate journal stats", err)
	}

	return stats, nil
}

// ExportStats writes the aggregated stats as YAML to the given path.
func (j *Journal) ExportStats(path string) error {
	stats, err := j.Stats()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to marshal journal stats", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to write journal stats", err)
	}

	return nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}

	err := j.db.Close()
	j.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to close journal database", err)
	}

	return nil
}

// Ensure Journal implements Recorder.
var _ Recorder = (*Journal)(nil)

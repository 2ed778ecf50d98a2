// Package session manages the on-disk folder layout of a trading run.
// Each run gets its own folder under the output root:
//
//	{output}/{YYYY-MM-DD}/run_N/
//
// Trade journals and stats exports are written inside the run folder.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"go.uber.org/zap"
)

var (
	runPattern  = regexp.MustCompile(`^run_(\d+)$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Manager owns the run folder for one engine session and rolls it over when
// the calendar date changes.
type Manager struct {
	mu sync.Mutex

	outputPath string
	runID      string
	runNumber  int
	startedAt  time.Time
	date       string
	runPath    string
	logger     *logger.Logger
}

// NewManager creates a Manager rooted at outputPath. Call Start before use.
func NewManager(outputPath string, log *logger.Logger) *Manager {
	return &Manager{
		outputPath: outputPath,
		runID:      "",
		runNumber:  0,
		startedAt:  time.Time{},
		date:       "",
		runPath:    "",
		logger:     log,
	}
}

// Start picks the next run number for today and creates the run folder.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startedAt = time.Now()
	m.date = m.startedAt.Format("2006-01-02")

	runNumber, err := m.nextRunNumber(m.date)
	if err != nil {
		return err
	}

	m.runNumber = runNumber
	m.runID = fmt.Sprintf("run_%d", runNumber)

	if err := m.makeRunFolderLocked(); err != nil {
		return err
	}

	m.logger.Info("Session started",
		zap.String("run_id", m.runID),
		zap.String("date", m.date),
		zap.String("path", m.runPath),
	)

	return nil
}

// nextRunNumber scans the date folder and returns one past the highest
// existing run number.
func (m *Manager) nextRunNumber(date string) (int, error) {
	datePath := filepath.Join(m.outputPath, date)

	if _, err := os.Stat(datePath); os.IsNotExist(err) {
		return 1, nil
	}

	entries, err := os.ReadDir(datePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read date directory: %w", err)
	}

	maxRun := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		matches := runPattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		num, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		if num > maxRun {
			maxRun = num
		}
	}

	return maxRun + 1, nil
}

func (m *Manager) makeRunFolderLocked() error {
	m.runPath = filepath.Join(m.outputPath, m.date, m.runID)

	if err := os.MkdirAll(m.runPath, 0755); err != nil {
		return fmt.Errorf("failed to create run folder: %w", err)
	}

	return nil
}

// Rollover creates a new run folder when timestamp has crossed into a new
// calendar date, keeping the same run number. Returns true if it rolled.
func (m *Manager) Rollover(timestamp time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newDate := timestamp.Format("2006-01-02")
	if newDate == m.date {
		return false, nil
	}

	oldDate := m.date
	m.date = newDate

	if err := m.makeRunFolderLocked(); err != nil {
		return false, err
	}

	m.logger.Info("Date boundary crossed",
		zap.String("old_date", oldDate),
		zap.String("new_date", newDate),
		zap.String("run_id", m.runID),
		zap.String("new_path", m.runPath),
	)

	return true, nil
}

// RunPath returns the current run folder path.
func (m *Manager) RunPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.runPath
}

// RunID returns the session run ID, e.g. "run_1".
func (m *Manager) RunID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.runID
}

// StartedAt returns the session start time.
func (m *Manager) StartedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.startedAt
}

// FilePath returns the full path for a file in the current run folder.
func (m *Manager) FilePath(filename string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return filepath.Join(m.runPath, filename)
}

// RunsForDate returns all run IDs recorded for a date, sorted by number.
func (m *Manager) RunsForDate(date string) ([]string, error) {
	datePath := filepath.Join(m.outputPath, date)

	if _, err := os.Stat(datePath); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(datePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read date directory: %w", err)
	}

	var runs []string

	for _, entry := range entries {
		if entry.IsDir() && runPattern.MatchString(entry.Name()) {
			runs = append(runs, entry.Name())
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		numI, _ := strconv.Atoi(runs[i][len("run_"):])
		numJ, _ := strconv.Atoi(runs[j][len("run_"):])

		return numI < numJ
	})

	return runs, nil
}

// Dates returns all dates with recorded runs, sorted ascending.
func (m *Manager) Dates() ([]string, error) {
	if _, err := os.Stat(m.outputPath); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(m.outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var dates []string

	for _, entry := range entries {
		if entry.IsDir() && datePattern.MatchString(entry.Name()) {
			dates = append(dates, entry.Name())
		}
	}

	sort.Strings(dates)

	return dates, nil
}

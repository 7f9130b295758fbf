package backfill

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrStateDateMismatch is returned when a loaded state file belongs to a
// different backfill range than the one being executed
var ErrStateDateMismatch = errors.New("state file belongs to a different backfill range")

// State is the persisted completion record of a backfill, keyed by range
// identity through its file name. It is a user-owned artifact and is never
// deleted automatically.
type State struct {
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Weekdays       []string  `json:"weekdays,omitempty"`
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedDates []string  `json:"completed_dates"`
	FailedDates    []string  `json:"failed_dates"`
}

// StatePath derives the deterministic state file path for a backfill range.
// The weekday filter participates in the identity so that filtered and
// unfiltered backfills over the same range do not share state.
func StatePath(dir string, start, end time.Time, weekdays []time.Weekday) string {
	name := fmt.Sprintf("backfill_state_%s_%s",
		start.Format(DateFormat), end.Format(DateFormat))

	if len(weekdays) > 0 {
		names := make([]string, 0, len(weekdays))
		for _, day := range weekdays {
			names = append(names, strings.ToLower(day.String()))
		}
		sort.Strings(names)
		name += "_" + strings.Join(names, "_")
	}

	return filepath.Join(dir, name+".json")
}

// FileStore persists backfill state as a JSON file with atomic writes.
// Record is safe to call from concurrent completions; every record is
// durable on disk before Record returns.
type FileStore struct {
	log   logrus.FieldLogger
	path  string
	mu    sync.Mutex
	state *State
}

// NewFileStore creates a state store backed by the given file path
func NewFileStore(log logrus.FieldLogger, path string) *FileStore {
	return &FileStore{
		log:  log.WithField("component", "state"),
		path: path,
	}
}

// Init loads the existing state file, or creates a fresh one for the given
// range when none exists. Read and write failures are surfaced, never
// swallowed: resume correctness depends on this file.
func (s *FileStore) Init(start, end time.Time, weekdays []time.Weekday, runID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		state := &State{}
		if unmarshalErr := json.Unmarshal(data, state); unmarshalErr != nil {
			return fmt.Errorf("parse backfill state %s: %w", s.path, unmarshalErr)
		}
		if state.StartDate != start.Format(DateFormat) || state.EndDate != end.Format(DateFormat) {
			return fmt.Errorf("%w: %s", ErrStateDateMismatch, s.path)
		}
		s.state = state
		s.log.WithFields(logrus.Fields{
			"path":      s.path,
			"completed": len(state.CompletedDates),
			"failed":    len(state.FailedDates),
		}).Info("Loaded existing backfill state")

		return nil
	case os.IsNotExist(err):
		names := make([]string, 0, len(weekdays))
		for _, day := range weekdays {
			names = append(names, strings.ToLower(day.String()))
		}
		s.state = &State{
			StartDate:      start.Format(DateFormat),
			EndDate:        end.Format(DateFormat),
			Weekdays:       names,
			RunID:          runID,
			CreatedAt:      now.UTC(),
			CompletedDates: []string{},
			FailedDates:    []string{},
		}

		return s.save(now)
	default:
		return fmt.Errorf("read backfill state %s: %w", s.path, err)
	}
}

// FilterPending returns the subset of the plan that has not yet succeeded.
// Failed and unrecorded dates remain scheduled so a resumed backfill always
// retries previous failures. Calling it repeatedly without new records
// yields the same result.
func (s *FileStore) FilterPending(plan Plan) Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := make(map[string]bool, len(s.state.CompletedDates))
	for _, date := range s.state.CompletedDates {
		completed[date] = true
	}

	pending := make(Plan, 0, len(plan))
	for _, date := range plan {
		if !completed[date.Format(DateFormat)] {
			pending = append(pending, date)
		}
	}

	return pending
}

// Record persists the outcome of one date. The write is synchronous: the
// state file is durable before Record returns, so an interrupt can only lose
// dates that were still in flight.
func (s *FileStore) Record(outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := outcome.Date.Format(DateFormat)
	if outcome.Succeeded() {
		s.state.CompletedDates = appendUnique(s.state.CompletedDates, date)
		s.state.FailedDates = remove(s.state.FailedDates, date)
	} else {
		s.state.FailedDates = appendUnique(s.state.FailedDates, date)
	}

	return s.save(outcome.EndTime)
}

// save writes the state file atomically via a temp file and rename. Callers
// must hold the mutex.
func (s *FileStore) save(now time.Time) error {
	s.state.UpdatedAt = now.UTC()
	sort.Strings(s.state.CompletedDates)
	sort.Strings(s.state.FailedDates)

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backfill state: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(s.path), 0o750); mkdirErr != nil {
		return fmt.Errorf("create state directory: %w", mkdirErr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".backfill_state_*.json")
	if err != nil {
		return fmt.Errorf("write backfill state %s: %w", s.path, err)
	}

	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write backfill state %s: %w", s.path, writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write backfill state %s: %w", s.path, closeErr)
	}

	if renameErr := os.Rename(tmp.Name(), s.path); renameErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write backfill state %s: %w", s.path, renameErr)
	}

	return nil
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}

	return append(values, value)
}

func remove(values []string, value string) []string {
	kept := values[:0]
	for _, existing := range values {
		if existing != value {
			kept = append(kept, existing)
		}
	}

	return kept
}

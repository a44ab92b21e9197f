// Package storage keeps the outcome of the previous run so the next one can
// report what changed.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/punasusi/pihole-probe/pkg/probe"
)

const (
	ProbeDir    = ".probe"
	LastRunFile = "last-run.json"
	ConfigFile  = "config.yaml"
)

type RunRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Target    string        `json:"target"`
	Passed    bool          `json:"passed"`
	State     string        `json:"state"`
	Checks    []StoredCheck `json:"checks"`
}

type StoredCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type RunDiff struct {
	HasPrevious    bool          `json:"has_previous"`
	PreviousTime   time.Time     `json:"previous_time,omitempty"`
	PreviousPassed bool          `json:"previous_passed"`
	NewlyFailing   []StoredCheck `json:"newly_failing,omitempty"`
	Recovered      []StoredCheck `json:"recovered,omitempty"`
}

// Changed reports whether any check changed between pass and fail.
func (d *RunDiff) Changed() bool {
	return d != nil && (len(d.NewlyFailing) > 0 || len(d.Recovered) > 0)
}

// NewRecord captures the checks that ran in result.
func NewRecord(result *probe.RunResult, now time.Time) *RunRecord {
	record := &RunRecord{
		Timestamp: now.UTC(),
		Target:    result.Target,
		Passed:    result.Passed(),
		State:     result.State.String(),
		Checks:    make([]StoredCheck, 0, len(result.Results)),
	}
	for _, cr := range result.Results {
		record.Checks = append(record.Checks, StoredCheck{
			ID:     cr.ID,
			Status: cr.Status.String(),
			Detail: cr.Detail,
		})
	}
	return record
}

type Storage struct {
	baseDir string
}

func NewStorage(baseDir string) *Storage {
	if baseDir == "" {
		baseDir = "."
	}
	return &Storage{baseDir: baseDir}
}

func (s *Storage) ProbeDirPath() string {
	return filepath.Join(s.baseDir, ProbeDir)
}

func (s *Storage) EnsureProbeDir() error {
	return os.MkdirAll(s.ProbeDirPath(), 0755)
}

func (s *Storage) LastRunPath() string {
	return filepath.Join(s.ProbeDirPath(), LastRunFile)
}

func (s *Storage) ConfigPath() string {
	return filepath.Join(s.ProbeDirPath(), ConfigFile)
}

// LoadLastRun returns nil without error when no run was saved yet.
func (s *Storage) LoadLastRun() (*RunRecord, error) {
	data, err := os.ReadFile(s.LastRunPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse last run: %w", err)
	}

	return &record, nil
}

func (s *Storage) SaveRun(record *RunRecord) error {
	if err := s.EnsureProbeDir(); err != nil {
		return fmt.Errorf("failed to create .probe directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.WriteFile(s.LastRunPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// ComputeDiff compares two runs against the same target. Checks that did
// not run in both are left out.
func ComputeDiff(current, previous *RunRecord) *RunDiff {
	diff := &RunDiff{}
	if previous == nil || previous.Target != current.Target {
		return diff
	}

	diff.HasPrevious = true
	diff.PreviousTime = previous.Timestamp
	diff.PreviousPassed = previous.Passed

	before := make(map[string]StoredCheck, len(previous.Checks))
	for _, c := range previous.Checks {
		before[c.ID] = c
	}

	failed := probe.StatusFailed.String()
	passed := probe.StatusPassed.String()
	for _, c := range current.Checks {
		prev, ok := before[c.ID]
		if !ok {
			continue
		}
		switch {
		case c.Status == failed && prev.Status == passed:
			diff.NewlyFailing = append(diff.NewlyFailing, c)
		case c.Status == passed && prev.Status == failed:
			diff.Recovered = append(diff.Recovered, prev)
		}
	}

	sort.Slice(diff.NewlyFailing, func(i, j int) bool { return diff.NewlyFailing[i].ID < diff.NewlyFailing[j].ID })
	sort.Slice(diff.Recovered, func(i, j int) bool { return diff.Recovered[i].ID < diff.Recovered[j].ID })

	return diff
}

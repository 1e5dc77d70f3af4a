// Package journal appends schedule and trigger events to a rotating JSONL file.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/homecoming/core/events"
	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/model"
)

// Config controls file rotation.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "logs/journal.jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Record kinds.
const (
	KindSchedule = "schedule"
	KindJob      = "job"
)

// Record is one journal line.
type Record struct {
	Kind     string            `json:"kind"`
	Time     time.Time         `json:"time"`
	UserID   string            `json:"user_id"`
	Station  model.StationName `json:"station,omitempty"`
	Estimate string            `json:"estimate,omitempty"`
	Schedule *model.Schedule   `json:"schedule,omitempty"`
	Job      *model.TriggerJob `json:"job,omitempty"`
	Action   events.JobAction  `json:"action,omitempty"`
	Lateness time.Duration     `json:"lateness,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// FromEvent converts a bus event. It reports false for unknown events.
func FromEvent(e events.Event) (Record, bool) {
	switch ev := e.(type) {
	case events.ScheduleEvent:
		return Record{
			Kind:     KindSchedule,
			Time:     ev.Time,
			UserID:   ev.UserID,
			Station:  ev.Station,
			Estimate: ev.Estimate,
			Schedule: ev.Schedule,
		}, true
	case events.JobEvent:
		job := ev.Job
		return Record{
			Kind:     KindJob,
			Time:     ev.Time,
			UserID:   job.UserID,
			Job:      &job,
			Action:   ev.Action,
			Lateness: ev.Lateness,
			Error:    ev.Err,
		}, true
	default:
		return Record{}, false
	}
}

// Query filters records. Zero fields match all.
type Query struct {
	Kind   string
	UserID string
	Start  time.Time
	End    time.Time
}

func (q Query) match(r Record) bool {
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	if !q.Start.IsZero() && r.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Time.After(q.End) {
		return false
	}
	return true
}

// Journal writes records through lumberjack.
type Journal struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
	log    logger.Logger
}

// New creates the journal directory if needed.
func New(cfg Config, log logger.Logger) (*Journal, error) {
	cfg.SetDefaults()
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Journal{
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		path: cfg.Path,
		log:  logger.OrNop(log),
	}, nil
}

// Append writes rec as one line.
func (j *Journal) Append(rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.writer.Write(append(b, '\n'))
	return err
}

// Run appends every event received on ch until ch is closed or ctx is done.
func (j *Journal) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			rec, ok := FromEvent(e)
			if !ok {
				continue
			}
			if err := j.Append(rec); err != nil {
				j.log.Errorf("journal append: %v", err)
			}
		}
	}
}

// Query reads the current and rotated files and returns matching records
// ordered by time.
func (j *Journal) Query(q Query) ([]Record, error) {
	files, err := filepath.Glob(j.pattern())
	if err != nil {
		return nil, err
	}
	var res []Record
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var r Record
			if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
				continue
			}
			if q.match(r) {
				res = append(res, r)
			}
		}
		_ = file.Close()
	}
	sort.SliceStable(res, func(a, b int) bool { return res[a].Time.Before(res[b].Time) })
	return res, nil
}

// pattern matches the active file and lumberjack backups
// ("journal-2006-01-02T15-04-05.000.jsonl").
func (j *Journal) pattern() string {
	ext := filepath.Ext(j.path)
	return j.path[:len(j.path)-len(ext)] + "*" + ext
}

// Close closes the underlying writer.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Close()
}

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	errs "autored/pkg/errors"
	"autored/pkg/logger"
	"autored/pkg/storage"

	"github.com/google/uuid"
)

// Record sources
const (
	SourceGenerated = "generated"
	SourceManual    = "manual"
	SourceVideo     = "video"
)

// Record statuses
const (
	StatusRunning   = "running"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Record is one publish attempt
type Record struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Title      string     `json:"title"`
	Media      []string   `json:"media"`
	Status     string     `json:"status"`
	ErrorType  string     `json:"error_type,omitempty"`
	Error      string     `json:"error,omitempty"`
	Step       int        `json:"step,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the attempt took, or 0 while running
func (r *Record) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Journal handles history file operations
type Journal struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// NewJournal creates a journal stored at path
func NewJournal(path string, log logger.Logger) *Journal {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Journal{
		path:   path,
		logger: log,
		now:    time.Now,
	}
}

// Path returns the journal file location
func (j *Journal) Path() string {
	return j.path
}

// Begin opens a running record and persists it
func (j *Journal) Begin(source, title string, media []string) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		Source:    source,
		Title:     title,
		Media:     append([]string(nil), media...),
		Status:    StatusRunning,
		StartedAt: j.now(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.load()
	if err != nil {
		return nil, err
	}
	records = append(records, *rec)
	if err := j.save(records); err != nil {
		return nil, err
	}

	j.logger.DebugWithFields("history record opened", map[string]interface{}{
		"id":     rec.ID,
		"source": source,
	})
	return rec, nil
}

// Finish closes rec with the outcome of the attempt
func (j *Journal) Finish(rec *Record, result error) error {
	finished := j.now()
	rec.FinishedAt = &finished
	if result == nil {
		rec.Status = StatusPublished
	} else {
		rec.Status = StatusFailed
		rec.Error = result.Error()
		rec.ErrorType = string(errs.TypeOf(result))
		rec.Step = errs.StepOf(result)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.load()
	if err != nil {
		return err
	}
	found := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = *rec
			found = true
			break
		}
	}
	if !found {
		records = append(records, *rec)
	}
	if err := j.save(records); err != nil {
		return err
	}

	j.logger.DebugWithFields("history record closed", map[string]interface{}{
		"id":     rec.ID,
		"status": rec.Status,
	})
	return nil
}

// List returns every record, oldest first
func (j *Journal) List() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

// Last returns the n most recent records, newest first
func (j *Journal) Last(n int) ([]Record, error) {
	records, err := j.List()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func (j *Journal) load() ([]Record, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return records, nil
}

func (j *Journal) save(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := storage.WriteFileAtomic(j.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Package runrecord is the persisted JSON layout of a pipeline run, shared
// by the document-style history backends.
package runrecord

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// Record is one run as stored on disk or in an object store.
type Record struct {
	ID          string                          `json:"id"`
	Timestamp   string                          `json:"timestamp"`
	Parameters  domain.Parameters               `json:"parameters"`
	ImageBase64 string                          `json:"image_base64"`
	MediaType   string                          `json:"media_type,omitempty"`
	Results     map[string]domain.PersonaResult `json:"results"`
	Errors      map[string]string               `json:"errors,omitempty"`
}

// NewID returns a timestamp-prefixed id with a random suffix, so that runs
// saved within the same millisecond never collide.
func NewID(t time.Time) domain.RunID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return domain.RunID(t.UTC().Format("20060102T150405.000Z") + "-" + suffix)
}

// ValidID rejects ids that could escape a directory or key prefix.
func ValidID(id domain.RunID) bool {
	s := string(id)
	return s != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

func FromRun(id domain.RunID, run *domain.PipelineRun) *Record {
	rec := &Record{
		ID:          string(id),
		Timestamp:   run.Timestamp.UTC().Format(time.RFC3339Nano),
		Parameters:  run.Parameters,
		ImageBase64: base64.StdEncoding.EncodeToString(run.Image.Data),
		MediaType:   run.Image.MediaType,
		Results:     make(map[string]domain.PersonaResult, len(run.Results)),
	}
	for name, r := range run.Results {
		if r != nil {
			rec.Results[string(name)] = *r
		}
	}
	if len(run.Failures) > 0 {
		rec.Errors = make(map[string]string, len(run.Failures))
		for name, msg := range run.Failures {
			rec.Errors[string(name)] = msg
		}
	}
	return rec
}

func (r *Record) ToRun() (*domain.PipelineRun, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	img, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode image_base64: %w", err)
	}

	run := &domain.PipelineRun{
		ID:         domain.RunID(r.ID),
		Timestamp:  ts,
		Image:      domain.Image{Data: img, MediaType: r.MediaType},
		Parameters: r.Parameters,
		Results:    make(map[domain.PersonaName]*domain.PersonaResult, len(r.Results)),
		Failures:   make(map[domain.PersonaName]string, len(r.Errors)),
	}
	for name, res := range r.Results {
		res := res
		run.Results[domain.PersonaName(name)] = &res
	}
	for name, msg := range r.Errors {
		run.Failures[domain.PersonaName(name)] = msg
	}
	return run, nil
}

func Marshal(rec *Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

// Unmarshal decodes and converts a stored record. fallbackID is used when
// the document itself carries no id.
func Unmarshal(data []byte, fallbackID string) (*domain.PipelineRun, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.ID == "" {
		rec.ID = fallbackID
	}
	return rec.ToRun()
}

// SortNewestFirst orders runs by timestamp, newest first, with the id as
// tie-breaker.
func SortNewestFirst(runs []*domain.PipelineRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.After(runs[j].Timestamp)
		}
		return runs[i].ID > runs[j].ID
	})
}

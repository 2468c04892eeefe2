package domain

import (
	"sort"
	"sync"
)

const (
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
)

// Parameters are the fixed campaign inputs of a run. Their content is opaque:
// they are only ever inserted into prompt text.
type Parameters struct {
	Product string `json:"product"`
	Price   string `json:"price"`
	Goal    string `json:"goal"`
	Channel string `json:"channel"`
}

// Image is an uploaded creative.
type Image struct {
	Data      []byte
	MediaType string
}

// PersonaResult is the output of the three-stage chain for one persona.
type PersonaResult struct {
	PersonaFeedback   string `json:"persona_feedback"`
	CreativeDirection string `json:"creative_direction"`
	JSONBrief         string `json:"json_brief"`
}

// PipelineRun is one execution over one creative and one parameter set.
// It is never mutated once saved.
type PipelineRun struct {
	ID         RunID
	Timestamp  Timestamp
	Image      Image
	Parameters Parameters

	// Results only holds personas that completed all three stages.
	Results map[PersonaName]*PersonaResult

	// Failures holds the error message of every persona that did not.
	Failures map[PersonaName]string
}

// PersonaNames returns the personas with a recorded result, sorted.
func (r *PipelineRun) PersonaNames() []PersonaName {
	names := make([]PersonaName, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// PersonaOutcome is the in-memory result of one persona's chain: either a
// Result or an Err, never both.
type PersonaOutcome struct {
	Persona     PersonaName
	State       PipelineState
	FailedStage Stage
	Result      *PersonaResult
	Err         error
}

// RunReport is what the orchestrator hands back to its caller.
type RunReport struct {
	Run      *PipelineRun
	Outcomes map[PersonaName]*PersonaOutcome
	Saved    bool
}

// Succeeded counts personas that reached STAGE3_DONE.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Result != nil {
			n++
		}
	}
	return n
}

// FirstError returns an error of any failed persona, in name order.
func (r *RunReport) FirstError() error {
	names := make([]PersonaName, 0, len(r.Outcomes))
	for name := range r.Outcomes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		if err := r.Outcomes[name].Err; err != nil {
			return err
		}
	}
	return nil
}

// Workspace holds the working state of one dashboard session: the last run
// and the briefs derived from it. It is passed explicitly to the services
// that update it.
type Workspace struct {
	mu         sync.RWMutex
	SessionID  SessionID
	lastReport *RunReport
	lastBriefs *BriefReport
}

func NewWorkspace(id SessionID) *Workspace {
	return &Workspace{SessionID: id}
}

func (w *Workspace) SetLastReport(r *RunReport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastReport = r
	w.lastBriefs = nil
}

func (w *Workspace) LastReport() *RunReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastReport
}

func (w *Workspace) SetLastBriefs(b *BriefReport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastBriefs = b
}

func (w *Workspace) LastBriefs() *BriefReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastBriefs
}

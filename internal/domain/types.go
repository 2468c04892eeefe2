package domain

import "time"

type SessionID string
type UserID string
type MessageID string
type RunID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Stage identifies one LLM call in the brief pipeline.
type Stage string

const (
	StageFeedback    Stage = "persona_feedback"
	StageTranslation Stage = "creative_translation"
	StageSynthesis   Stage = "synthesis"
	StageFormat      Stage = "production_format"
	StageGate        Stage = "fit_gate"
	StageChat        Stage = "chat"
)

// PipelineState is the position of one persona in its stage chain.
type PipelineState string

const (
	StatePending    PipelineState = "PENDING"
	StateStage1Done PipelineState = "STAGE1_DONE"
	StateStage2Done PipelineState = "STAGE2_DONE"
	StateStage3Done PipelineState = "STAGE3_DONE"
	StateSkipped    PipelineState = "SKIPPED"
	StateFormatted  PipelineState = "FORMATTED"
	StateFailed     PipelineState = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s PipelineState) Terminal() bool {
	return s == StateSkipped || s == StateFormatted || s == StateFailed
}

type Timestamp = time.Time

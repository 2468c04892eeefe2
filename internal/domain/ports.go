package domain

import "context"

// LLMRequest is one call to the LLM service.
type LLMRequest struct {
	Stage   Stage
	Persona PersonaName
	System  string
	User    string

	// Image is optional; only the feedback stage sends the creative.
	Image *Image

	MaxTokens int
}

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	Generate(ctx context.Context, req LLMRequest) (string, error)
}

// CredentialChecker is implemented by LLM clients that can tell up front
// whether they hold a usable credential.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context) error
}

// ConversationContext gives the LLM minimal context about a persona chat.
type ConversationContext struct {
	SessionID SessionID
	UserID    UserID
	Persona   PersonaName
	History   []*Message // last N messages with this persona
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}

// MessageStore defines message's persistence. Messages are partitioned by
// session and persona.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessages(ctx context.Context, sessionID SessionID, persona PersonaName, limit int) ([]*Message, error)
	ClearMessages(ctx context.Context, sessionID SessionID, persona PersonaName) error
}

// HistoryStore durably records pipeline runs.
type HistoryStore interface {
	Save(ctx context.Context, run *PipelineRun) (RunID, error)

	// List returns all readable runs, newest first. Unreadable records are
	// skipped.
	List(ctx context.Context) ([]*PipelineRun, error)
	Get(ctx context.Context, id RunID) (*PipelineRun, error)
	Clear(ctx context.Context) error
}

// BriefPublisher hands finished production briefs to downstream production.
type BriefPublisher interface {
	PublishBrief(ctx context.Context, runID RunID, brief *ProductionBrief) error
}

// WorkspaceStore keeps the per-session working state.
type WorkspaceStore interface {
	Workspace(id SessionID) *Workspace
}

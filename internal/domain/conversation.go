package domain

// Message represents a any message in a persona chat (user or persona)
type Message struct {
	ID        MessageID
	SessionID SessionID
	Persona   PersonaName
	Author    Role
	Text      string
	CreatedAt Timestamp

	// ContentType is "text" for chat turns and "creative_feedback" for
	// feedback copied in from a pipeline run.
	ContentType string
}

// Session represent one dashboard session of a user. It scopes persona
// chats and the workspace.
type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Title string
}

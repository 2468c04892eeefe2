// Package conversation runs multi-turn chats between the user and a single
// persona, scoped to a dashboard session.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/prompts"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

const (
	ContentText             = "text"
	ContentCreativeFeedback = "creative_feedback"

	historyLimit = 20
)

type Service struct {
	llm          domain.LLMClient
	personas     domain.PersonaRegistry
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	now          func() time.Time
}

func NewService(
	llm domain.LLMClient,
	personas domain.PersonaRegistry,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
) *Service {
	return &Service{
		llm:          llm,
		personas:     personas,
		sessionStore: sessionStore,
		messageStore: messageStore,
		now:          time.Now,
	}
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

type StartSessionOutput struct {
	Session *domain.Session
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		UserID:    in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		Title:     in.Title,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{
		Session: session,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Persona   domain.PersonaName
	Text      string
}

type SendMessageOutput struct {
	UserMessage    *domain.Message
	PersonaMessage *domain.Message
}

// SendMessage asks the persona one question. The persona sees its profile
// and the recent turns of this chat, not the current message twice.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("message text is required")
	}
	persona, ok := s.personas.Get(in.Persona)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPersona, in.Persona)
	}

	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"persona", persona.Name,
	)
	log.Info("sending message", "chars", len(in.Text))

	history, err := s.messageStore.GetMessages(ctx, session.ID, persona.Name, historyLimit)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, fmt.Errorf("load history: %w", err)
	}

	// The question is only stored together with its reply, so a failed call
	// leaves no unanswered turn behind.
	userMsg := s.newMessage(session.ID, persona.Name, domain.RoleUser, in.Text, ContentText)

	convCtx := domain.ConversationContext{
		SessionID: session.ID,
		UserID:    session.UserID,
		Persona:   persona.Name,
		History:   history,
	}
	p := prompts.Chat(persona, in.Text, convCtx)

	reply, err := s.llm.Generate(ctx, domain.LLMRequest{
		Stage:     domain.StageChat,
		Persona:   persona.Name,
		System:    p.System,
		User:      p.User,
		MaxTokens: 1000,
	})
	if err != nil {
		log.Error("persona reply failed", "error", err)
		return nil, err
	}

	if err := s.messageStore.AppendMessage(ctx, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, fmt.Errorf("append user message: %w", err)
	}
	personaMsg := s.newMessage(session.ID, persona.Name, domain.RoleAgent, reply, ContentText)
	if err := s.messageStore.AppendMessage(ctx, personaMsg); err != nil {
		log.Error("failed to append persona message", "error", err)
		return nil, fmt.Errorf("append persona message: %w", err)
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, fmt.Errorf("update session: %w", err)
	}

	log.Info("send message completed")

	return &SendMessageOutput{
		UserMessage:    userMsg,
		PersonaMessage: personaMsg,
	}, nil
}

// ShareFeedback seeds each persona chat with that persona's stage-1
// feedback from a run, so follow-up questions have the creative in context.
func (s *Service) ShareFeedback(ctx context.Context, sessionID domain.SessionID, run *domain.PipelineRun) error {
	if run == nil {
		return nil
	}
	for _, name := range run.PersonaNames() {
		r := run.Results[name]
		if r == nil || strings.TrimSpace(r.PersonaFeedback) == "" {
			continue
		}
		msg := s.newMessage(sessionID, name, domain.RoleAgent, r.PersonaFeedback, ContentCreativeFeedback)
		if err := s.messageStore.AppendMessage(ctx, msg); err != nil {
			return fmt.Errorf("share feedback for %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) GetSession(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	return s.sessionStore.GetSession(ctx, sessionID)
}

// ListSessions returns the user's sessions, newest first. limit <= 0 means all.
func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	sessions, err := s.sessionStore.ListSessionsByUser(ctx, userID, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to list sessions", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) GetTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	persona domain.PersonaName,
	limit int,
) ([]*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"persona", persona,
		"limit", limit,
	)

	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		log.Error("failed to get session", "error", err)
		return nil, err
	}

	msgs, err := s.messageStore.GetMessages(ctx, sessionID, persona, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, err
	}

	log.Info("fetched persona timeline", "message_count", len(msgs))
	return msgs, nil
}

func (s *Service) ClearConversation(ctx context.Context, sessionID domain.SessionID, persona domain.PersonaName) error {
	if _, ok := s.personas.Get(persona); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownPersona, persona)
	}
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.messageStore.ClearMessages(ctx, sessionID, persona); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("conversation cleared",
		"session_id", sessionID,
		"persona", persona)
	return nil
}

func (s *Service) newMessage(sessionID domain.SessionID, persona domain.PersonaName, author domain.Role, text, contentType string) *domain.Message {
	return &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   sessionID,
		Persona:     persona,
		Author:      author,
		Text:        text,
		CreatedAt:   s.now(),
		ContentType: contentType,
	}
}

package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/agentflow"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/briefs"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/conversation"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/history"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// maxUploadBytes bounds the multipart body of a run request.
const maxUploadBytes = 32 << 20

type Deps struct {
	Personas      domain.PersonaRegistry
	Conversations *conversation.Service
	Orchestrator  *agentflow.Orchestrator
	Briefs        *briefs.Service
	History       *history.Service
	Workspaces    domain.WorkspaceStore
}

type Server struct {
	Deps
}

func NewServer(d Deps) http.Handler {
	s := &Server{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withRequestContext)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealth)
	r.Get("/personas", s.handleListPersonas)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/workspace", s.handleGetWorkspace)
			r.Post("/runs", s.handleCreateRun)

			r.Route("/personas/{persona}/messages", func(r chi.Router) {
				r.Get("/", s.handleGetMessages)
				r.Post("/", s.handleSendMessage)
				r.Delete("/", s.handleClearMessages)
			})
		})
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleListHistory)
		r.Delete("/", s.handleClearHistory)
		r.Get("/export.csv", s.handleExportHistory)
		r.Get("/{runID}", s.handleGetRun)
		r.Post("/{runID}/briefs", s.handleRunBriefs)
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type personaResponse struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Tagline     string `json:"tagline"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Persona     string    `json:"persona"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage    messageResponse `json:"user_message"`
	PersonaMessage messageResponse `json:"persona_message"`
}

type outcomeResponse struct {
	State       string                `json:"state"`
	FailedStage string                `json:"failed_stage,omitempty"`
	Error       string                `json:"error,omitempty"`
	Result      *domain.PersonaResult `json:"result,omitempty"`
}

type runResponse struct {
	RunID      string                     `json:"run_id,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
	Saved      bool                       `json:"saved"`
	Parameters domain.Parameters          `json:"parameters"`
	Personas   map[string]outcomeResponse `json:"personas"`
}

type briefOutcomeResponse struct {
	State       string                  `json:"state"`
	FailedStage string                  `json:"failed_stage,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Brief       *domain.ProductionBrief `json:"brief,omitempty"`
}

type briefsResponse struct {
	RunID       string                          `json:"run_id"`
	FormatCalls int                             `json:"format_calls"`
	Personas    map[string]briefOutcomeResponse `json:"personas"`
}

type createRunResponse struct {
	Run    runResponse     `json:"run"`
	Briefs *briefsResponse `json:"briefs,omitempty"`
}

type workspaceResponse struct {
	SessionID string          `json:"session_id"`
	Run       *runResponse    `json:"run"`
	Briefs    *briefsResponse `json:"briefs"`
}

type historyEntryResponse struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Parameters domain.Parameters `json:"parameters"`
	Personas   []string          `json:"personas"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type runDetailResponse struct {
	historyEntryResponse
	MediaType  string                           `json:"media_type"`
	ImageBytes int                              `json:"image_bytes"`
	Results    map[string]*domain.PersonaResult `json:"results"`
}

// ─────────────────────────────────────────────
// Personas & sessions
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	all := s.Personas.All()
	out := make([]personaResponse, 0, len(all))
	for _, p := range all {
		out = append(out, personaResponse{
			Name:        string(p.Name),
			Icon:        p.Icon,
			Tagline:     p.Tagline,
			Color:       p.Color,
			Description: p.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.Conversations.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := s.Conversations.ListSessions(r.Context(), domain.UserID(userID), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.Conversations.GetSession(r.Context(), sessionIDParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	if _, err := s.Conversations.GetSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	ws := s.Workspaces.Workspace(id)
	resp := workspaceResponse{SessionID: string(id)}
	if rep := ws.LastReport(); rep != nil {
		run := toRunResponse(rep)
		resp.Run = &run
	}
	if b := ws.LastBriefs(); b != nil {
		resp.Briefs = toBriefsResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// Persona chat
// ─────────────────────────────────────────────

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	persona, ok := s.personaParam(r)
	if !ok {
		writeError(w, r, domain.ErrUnknownPersona)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := s.Conversations.GetTimeline(r.Context(), sessionIDParam(r), persona, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessagesResponse(msgs))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	persona, ok := s.personaParam(r)
	if !ok {
		writeError(w, r, domain.ErrUnknownPersona)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.Conversations.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionIDParam(r),
		Persona:   persona,
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:    toMessageResponse(out.UserMessage),
		PersonaMessage: toMessageResponse(out.PersonaMessage),
	})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	persona, ok := s.personaParam(r)
	if !ok {
		writeError(w, r, domain.ErrUnknownPersona)
		return
	}
	if err := s.Conversations.ClearConversation(r.Context(), sessionIDParam(r), persona); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Pipeline runs
// ─────────────────────────────────────────────

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := sessionIDParam(r)
	if _, err := s.Conversations.GetSession(ctx, sessionID); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, domain.ErrEmptyImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "could not read image")
		return
	}
	img, err := llm.PrepareImage(data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	ws := s.Workspaces.Workspace(sessionID)
	report, err := s.Orchestrator.Run(ctx, ws, agentflow.RunInput{
		Image: img,
		Parameters: domain.Parameters{
			Product: r.FormValue("product"),
			Price:   r.FormValue("price"),
			Goal:    r.FormValue("goal"),
			Channel: r.FormValue("channel"),
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := createRunResponse{Run: toRunResponse(report)}
	if report.Succeeded() == 0 {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": report.FirstError().Error(),
			"run":   resp.Run,
		})
		return
	}

	if err := s.Conversations.ShareFeedback(ctx, sessionID, report.Run); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to share feedback with persona chats", "error", err)
	}
	resp.Briefs = toBriefsResponse(s.Briefs.Generate(ctx, ws, report.Run))

	writeJSON(w, http.StatusCreated, resp)
}

// ─────────────────────────────────────────────
// History
// ─────────────────────────────────────────────

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.History.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]historyEntryResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toHistoryEntry(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.History.Get(r.Context(), domain.RunID(chi.URLParam(r, "runID")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := runDetailResponse{
		historyEntryResponse: toHistoryEntry(run),
		MediaType:            run.Image.MediaType,
		ImageBytes:           len(run.Image.Data),
		Results:              make(map[string]*domain.PersonaResult, len(run.Results)),
	}
	for name, res := range run.Results {
		resp.Results[string(name)] = res
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRunBriefs regenerates briefs for a saved run. With ?session_id= the
// result also lands in that session's workspace.
func (s *Server) handleRunBriefs(w http.ResponseWriter, r *http.Request) {
	var ws *domain.Workspace
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		ws = s.Workspaces.Workspace(domain.SessionID(sid))
	}

	rep, err := s.Briefs.FromHistory(r.Context(), ws, domain.RunID(chi.URLParam(r, "runID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBriefsResponse(rep))
}

// handleExportHistory renders the whole CSV before sending anything, so a
// storage failure still gets an error status.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.History.ExportCSV(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="resonance_history.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.History.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Params & converters
// ─────────────────────────────────────────────

func sessionIDParam(r *http.Request) domain.SessionID {
	return domain.SessionID(chi.URLParam(r, "sessionID"))
}

// personaParam accepts the display name or a slug such as "busy-brenda".
func (s *Server) personaParam(r *http.Request) (domain.PersonaName, bool) {
	raw := chi.URLParam(r, "persona")
	want := personaSlug(raw)
	for _, p := range s.Personas.All() {
		if personaSlug(string(p.Name)) == want {
			return p.Name, true
		}
	}
	return "", false
}

func personaSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "", "+", "").Replace(s)
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:          string(m.ID),
		SessionID:   string(m.SessionID),
		Persona:     string(m.Persona),
		Author:      string(m.Author),
		Text:        m.Text,
		ContentType: m.ContentType,
		CreatedAt:   m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toRunResponse(rep *domain.RunReport) runResponse {
	out := runResponse{
		Saved:    rep.Saved,
		Personas: make(map[string]outcomeResponse, len(rep.Outcomes)),
	}
	if rep.Run != nil {
		out.RunID = string(rep.Run.ID)
		out.Timestamp = rep.Run.Timestamp
		out.Parameters = rep.Run.Parameters
	}
	for name, o := range rep.Outcomes {
		pr := outcomeResponse{
			State:       string(o.State),
			FailedStage: string(o.FailedStage),
			Result:      o.Result,
		}
		if o.Err != nil {
			pr.Error = o.Err.Error()
		}
		out.Personas[string(name)] = pr
	}
	return out
}

func toBriefsResponse(rep *domain.BriefReport) *briefsResponse {
	out := &briefsResponse{
		RunID:       string(rep.RunID),
		FormatCalls: rep.FormatCalls,
		Personas:    make(map[string]briefOutcomeResponse, len(rep.Outcomes)),
	}
	for name, o := range rep.Outcomes {
		br := briefOutcomeResponse{
			State:       string(o.State),
			FailedStage: string(o.FailedStage),
			Brief:       o.Brief,
		}
		if o.Err != nil {
			br.Error = o.Err.Error()
		}
		out.Personas[string(name)] = br
	}
	return out
}

func toHistoryEntry(run *domain.PipelineRun) historyEntryResponse {
	names := run.PersonaNames()
	personas := make([]string, 0, len(names))
	for _, n := range names {
		personas = append(personas, string(n))
	}
	var errs map[string]string
	if len(run.Failures) > 0 {
		errs = make(map[string]string, len(run.Failures))
		for name, msg := range run.Failures {
			errs[string(name)] = msg
		}
	}
	return historyEntryResponse{
		ID:         string(run.ID),
		Timestamp:  run.Timestamp,
		Parameters: run.Parameters,
		Personas:   personas,
		Errors:     errs,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		callErr    *domain.LLMCallError
		persistErr *domain.PersistenceError
	)

	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRunNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUnknownPersona),
		errors.Is(err, domain.ErrEmptyImage),
		errors.Is(err, domain.ErrUnsupportedMedia):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrMissingCredential):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &callErr):
		status, msg = http.StatusBadGateway, err.Error()
	case errors.As(err, &persistErr) && persistErr.Op == "save":
		msg = fmt.Sprintf("could not save results: %v", persistErr.Err)
	case errors.As(err, &persistErr):
		msg = fmt.Sprintf("history storage failed (%s): %v", persistErr.Op, persistErr.Err)
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

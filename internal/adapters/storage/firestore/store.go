package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/runrecord"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// imageChunkSize keeps every chunk document under the 1 MiB Firestore limit.
const imageChunkSize = 900 * 1024

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (RESONANCE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(string(msgID))
}

func (s *Store) runsCol() *firestore.CollectionRef {
	return s.client.Collection("pipeline_runs")
}

func (s *Store) runDoc(id domain.RunID) *firestore.DocumentRef {
	return s.runsCol().Doc(string(id))
}

func (s *Store) chunksCol(id domain.RunID) *firestore.CollectionRef {
	return s.runDoc(id).Collection("image_chunks")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID    string    `firestore:"user_id"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	SessionID   string    `firestore:"session_id"`
	Persona     string    `firestore:"persona"`
	Author      string    `firestore:"author"`
	Text        string    `firestore:"text"`
	CreatedAt   time.Time `firestore:"created_at"`
	ContentType string    `firestore:"content_type"`
}

type resultDoc struct {
	PersonaFeedback   string `firestore:"persona_feedback"`
	CreativeDirection string `firestore:"creative_direction"`
	JSONBrief         string `firestore:"json_brief"`
}

type runDoc struct {
	Timestamp   time.Time            `firestore:"timestamp"`
	Product     string               `firestore:"product"`
	Price       string               `firestore:"price"`
	Goal        string               `firestore:"goal"`
	Channel     string               `firestore:"channel"`
	MediaType   string               `firestore:"media_type"`
	ImageChunks int                  `firestore:"image_chunks"`
	Results     map[string]resultDoc `firestore:"results"`
	Errors      map[string]string    `firestore:"errors"`
}

type chunkDoc struct {
	Data []byte `firestore:"data"`
}

func toSessionDoc(session *domain.Session) sessionDoc {
	return sessionDoc{
		UserID:    string(session.UserID),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

func (d sessionDoc) toDomain(id domain.SessionID) *domain.Session {
	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(d.UserID),
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.sessionDoc(session.ID).Create(ctx, toSessionDoc(session))
	if err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	doc := map[string]interface{}{
		"user_id":    string(session.UserID),
		"title":      session.Title,
		"created_at": session.CreatedAt,
		"updated_at": session.UpdatedAt,
	}

	_, err := s.sessionDoc(session.ID).Set(ctx, doc, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	return doc.toDomain(id), nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}
		out = append(out, doc.toDomain(domain.SessionID(snap.Ref.ID)))
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		SessionID:   string(msg.SessionID),
		Persona:     string(msg.Persona),
		Author:      string(msg.Author),
		Text:        msg.Text,
		CreatedAt:   msg.CreatedAt,
		ContentType: msg.ContentType,
	}

	_, err := s.messageDoc(msg.SessionID, msg.ID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

// GetMessages returns the last `limit` messages of one persona chat, oldest
// first.
func (s *Store) GetMessages(ctx context.Context, sessionID domain.SessionID, persona domain.PersonaName, limit int) ([]*domain.Message, error) {
	q := s.messagesCol(sessionID).
		Where("persona", "==", string(persona)).
		OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore GetMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:          domain.MessageID(snap.Ref.ID),
			SessionID:   sessionID,
			Persona:     domain.PersonaName(doc.Persona),
			Author:      domain.Role(doc.Author),
			Text:        doc.Text,
			CreatedAt:   doc.CreatedAt,
			ContentType: doc.ContentType,
		})
	}

	// queried newest first so that Limit keeps the tail
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ClearMessages(ctx context.Context, sessionID domain.SessionID, persona domain.PersonaName) error {
	iter := s.messagesCol(sessionID).Where("persona", "==", string(persona)).Documents(ctx)
	if err := s.deleteAll(ctx, iter); err != nil {
		return fmt.Errorf("firestore ClearMessages: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

// Save writes the run document and its image chunks in one transaction.
func (s *Store) Save(ctx context.Context, run *domain.PipelineRun) (domain.RunID, error) {
	if run == nil {
		return "", &domain.PersistenceError{Op: "save", Err: errors.New("nil run")}
	}

	id := runrecord.NewID(run.Timestamp)
	chunks := splitChunks(run.Image.Data, imageChunkSize)

	doc := runDoc{
		Timestamp:   run.Timestamp.UTC(),
		Product:     run.Parameters.Product,
		Price:       run.Parameters.Price,
		Goal:        run.Parameters.Goal,
		Channel:     run.Parameters.Channel,
		MediaType:   run.Image.MediaType,
		ImageChunks: len(chunks),
		Results:     make(map[string]resultDoc, len(run.Results)),
		Errors:      make(map[string]string, len(run.Failures)),
	}
	for name, r := range run.Results {
		if r == nil {
			continue
		}
		doc.Results[string(name)] = resultDoc{
			PersonaFeedback:   r.PersonaFeedback,
			CreativeDirection: r.CreativeDirection,
			JSONBrief:         r.JSONBrief,
		}
	}
	for name, msg := range run.Failures {
		doc.Errors[string(name)] = msg
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.runDoc(id), doc); err != nil {
			return err
		}
		for i, c := range chunks {
			if err := tx.Create(s.chunksCol(id).Doc(fmt.Sprintf("%04d", i)), chunkDoc{Data: c}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: fmt.Errorf("firestore Save: %w", err)}
	}
	return id, nil
}

// List returns every readable run, newest first. Runs that fail to decode
// are logged and skipped.
func (s *Store) List(ctx context.Context) ([]*domain.PipelineRun, error) {
	log := observability.LoggerFromContext(ctx)

	iter := s.runsCol().OrderBy("timestamp", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.PipelineRun
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, &domain.PersistenceError{Op: "list", Err: fmt.Errorf("firestore List: %w", err)}
		}

		run, err := s.decodeRun(ctx, snap)
		if err != nil {
			log.Warn("skipping corrupted run record", "run_id", snap.Ref.ID, "error", err)
			continue
		}
		out = append(out, run)
	}

	runrecord.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id domain.RunID) (*domain.PipelineRun, error) {
	if !runrecord.ValidID(id) {
		return nil, domain.ErrRunNotFound
	}
	snap, err := s.runDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, &domain.PersistenceError{Op: "get", Err: fmt.Errorf("firestore Get: %w", err)}
	}

	run, err := s.decodeRun(ctx, snap)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return run, nil
}

func (s *Store) Clear(ctx context.Context) error {
	iter := s.runsCol().Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return &domain.PersistenceError{Op: "clear", Err: fmt.Errorf("firestore Clear: %w", err)}
		}

		id := domain.RunID(snap.Ref.ID)
		if err := s.deleteAll(ctx, s.chunksCol(id).Documents(ctx)); err != nil {
			return &domain.PersistenceError{Op: "clear", Err: err}
		}
		if _, err := snap.Ref.Delete(ctx); err != nil && !isNotFound(err) {
			return &domain.PersistenceError{Op: "clear", Err: err}
		}
	}
}

func (s *Store) decodeRun(ctx context.Context, snap *firestore.DocumentSnapshot) (*domain.PipelineRun, error) {
	var doc runDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode runDoc: %w", err)
	}

	id := domain.RunID(snap.Ref.ID)
	img, err := s.readImage(ctx, id, doc.ImageChunks)
	if err != nil {
		return nil, err
	}

	run := &domain.PipelineRun{
		ID:        id,
		Timestamp: doc.Timestamp,
		Image:     domain.Image{Data: img, MediaType: doc.MediaType},
		Parameters: domain.Parameters{
			Product: doc.Product,
			Price:   doc.Price,
			Goal:    doc.Goal,
			Channel: doc.Channel,
		},
		Results:  make(map[domain.PersonaName]*domain.PersonaResult, len(doc.Results)),
		Failures: make(map[domain.PersonaName]string, len(doc.Errors)),
	}
	for name, r := range doc.Results {
		run.Results[domain.PersonaName(name)] = &domain.PersonaResult{
			PersonaFeedback:   r.PersonaFeedback,
			CreativeDirection: r.CreativeDirection,
			JSONBrief:         r.JSONBrief,
		}
	}
	for name, msg := range doc.Errors {
		run.Failures[domain.PersonaName(name)] = msg
	}
	return run, nil
}

func (s *Store) readImage(ctx context.Context, id domain.RunID, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	iter := s.chunksCol(id).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var (
		img   []byte
		count int
	)
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("read image chunks: %w", err)
		}
		var c chunkDoc
		if err := snap.DataTo(&c); err != nil {
			return nil, fmt.Errorf("decode image chunk: %w", err)
		}
		img = append(img, c.Data...)
		count++
	}
	if count != n {
		return nil, fmt.Errorf("image has %d of %d chunks", count, n)
	}
	return img, nil
}

func (s *Store) deleteAll(ctx context.Context, iter *firestore.DocumentIterator) error {
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil && !isNotFound(err) {
			return err
		}
	}
}

func splitChunks(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

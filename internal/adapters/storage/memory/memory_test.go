package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/memory"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

func TestMessageStorePartitionsByPersona(t *testing.T) {
	s := memory.NewMessageStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendMessage(ctx, &domain.Message{
			ID: domain.MessageID(fmt.Sprint(i)), SessionID: "s1", Persona: domain.PersonaBusyBrenda, Text: fmt.Sprint(i),
		}))
	}
	require.NoError(t, s.AppendMessage(ctx, &domain.Message{SessionID: "s1", Persona: domain.PersonaHungryHiro, Text: "hiro"}))
	require.NoError(t, s.AppendMessage(ctx, &domain.Message{SessionID: "s2", Persona: domain.PersonaBusyBrenda, Text: "other session"}))

	last, err := s.GetMessages(ctx, "s1", domain.PersonaBusyBrenda, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "3", last[0].Text)
	assert.Equal(t, "4", last[1].Text)

	all, err := s.GetMessages(ctx, "s1", domain.PersonaBusyBrenda, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, s.ClearMessages(ctx, "s1", domain.PersonaBusyBrenda))
	cleared, err := s.GetMessages(ctx, "s1", domain.PersonaBusyBrenda, 0)
	require.NoError(t, err)
	assert.Empty(t, cleared)

	hiro, err := s.GetMessages(ctx, "s1", domain.PersonaHungryHiro, 0)
	require.NoError(t, err)
	assert.Len(t, hiro, 1)
}

func TestSessionStore(t *testing.T) {
	s := memory.NewSessionStore()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateSession(ctx, &domain.Session{ID: "a", UserID: "u", CreatedAt: t0}))
	require.NoError(t, s.CreateSession(ctx, &domain.Session{ID: "b", UserID: "u", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.CreateSession(ctx, &domain.Session{ID: "c", UserID: "other", CreatedAt: t0}))
	assert.Error(t, s.CreateSession(ctx, &domain.Session{ID: "a"}))

	list, err := s.ListSessionsByUser(ctx, "u", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SessionID("b"), list[0].ID)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, s.UpdateSession(ctx, &domain.Session{ID: "missing"}), domain.ErrSessionNotFound)
}

func TestHistoryStoreReturnsCopies(t *testing.T) {
	s := memory.NewHistoryStore()
	ctx := context.Background()

	run := &domain.PipelineRun{
		Timestamp: time.Now(),
		Image:     domain.Image{Data: []byte{1, 2, 3}, MediaType: domain.MediaTypePNG},
		Results: map[domain.PersonaName]*domain.PersonaResult{
			domain.PersonaUrbanUro: {PersonaFeedback: "original"},
		},
	}
	id, err := s.Save(ctx, run)
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	got.Results[domain.PersonaUrbanUro].PersonaFeedback = "changed"
	got.Image.Data[0] = 9

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Results[domain.PersonaUrbanUro].PersonaFeedback)
	assert.Equal(t, byte(1), again.Image.Data[0])

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestWorkspaceStoreIsStablePerSession(t *testing.T) {
	s := memory.NewWorkspaceStore()
	a := s.Workspace("s1")
	assert.Same(t, a, s.Workspace("s1"))
	assert.NotSame(t, a, s.Workspace("s2"))
	assert.Equal(t, domain.SessionID("s1"), a.SessionID)
}

package memory

import (
	"sync"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// WorkspaceStore hands out one workspace per session, created on first use.
type WorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[domain.SessionID]*domain.Workspace
}

func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[domain.SessionID]*domain.Workspace),
	}
}

func (s *WorkspaceStore) Workspace(id domain.SessionID) *domain.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		ws = domain.NewWorkspace(id)
		s.workspaces[id] = ws
	}
	return ws
}

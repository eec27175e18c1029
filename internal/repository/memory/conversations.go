package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// ConversationStore keeps one state per contact.
type ConversationStore struct {
	mu     sync.RWMutex
	states map[string]domain.ConversationState
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{states: map[string]domain.ConversationState{}}
}

var _ repository.ConversationStore = (*ConversationStore)(nil)

func (s *ConversationStore) Get(_ context.Context, contactID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[contactID]
	if !ok {
		return domain.NewConversationState(contactID), nil
	}
	return cloneState(state), nil
}

func (s *ConversationStore) Save(_ context.Context, state *domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ContactID] = *cloneState(*state)
	return nil
}

func cloneState(state domain.ConversationState) *domain.ConversationState {
	c := state
	c.Context = make(map[string]string, len(state.Context))
	for k, v := range state.Context {
		c.Context[k] = v
	}
	return &c
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/service-desk/internal/domain"
)

const conversationKeyPrefix = "conversation:"

type redisConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConversationStore keeps conversation states as JSON values.
// A zero ttl keeps them forever.
func NewRedisConversationStore(client *redis.Client, ttl time.Duration) ConversationStore {
	return &redisConversationStore{client: client, ttl: ttl}
}

func (s *redisConversationStore) Get(ctx context.Context, contactID string) (*domain.ConversationState, error) {
	raw, err := s.client.Get(ctx, conversationKeyPrefix+contactID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewConversationState(contactID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", contactID, err)
	}
	var state domain.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", contactID, err)
	}
	if state.Context == nil {
		state.Context = map[string]string{}
	}
	return &state, nil
}

func (s *redisConversationStore) Save(ctx context.Context, state *domain.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", state.ContactID, err)
	}
	if err := s.client.Set(ctx, conversationKeyPrefix+state.ContactID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation %s: %w", state.ContactID, err)
	}
	return nil
}

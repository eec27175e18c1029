package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
	"github.com/spec-kit/service-desk/internal/repository/memory"
)

type stores struct {
	tx            persistence.Transactor
	catalog       catalog.Loader
	tickets       repository.TicketRepository
	history       repository.TicketHistoryRepository
	unmatched     repository.UnmatchedRepository
	guests        repository.GuestRepository
	feedback      repository.FeedbackRepository
	conversations repository.ConversationStore
}

// newStores picks Postgres repositories when a pool is configured and
// in-memory ones otherwise. Conversation state lives in Redis when it is
// reachable.
func newStores(pg *persistence.Postgres, redis *persistence.Redis, conversationTTL time.Duration, logger *zap.Logger) stores {
	var st stores
	if pg.Enabled() {
		pool := pg.PoolHandle()
		st = stores{
			tx:        persistence.NewTxManager(pool),
			catalog:   repository.NewCatalogRepository(pool),
			tickets:   repository.NewTicketRepository(pool),
			history:   repository.NewTicketHistoryRepository(pool),
			unmatched: repository.NewUnmatchedRepository(pool),
			guests:    repository.NewGuestRepository(pool),
			feedback:  repository.NewFeedbackRepository(pool),
		}
	} else {
		logger.Warn("running on in-memory repositories; data is lost on restart")
		st = stores{
			tx:        persistence.NoopTransactor{},
			catalog:   memory.NewCatalogLoader(catalog.Data{}),
			tickets:   memory.NewTicketRepository(),
			history:   memory.NewTicketHistoryRepository(),
			unmatched: memory.NewUnmatchedRepository(),
			guests:    memory.NewGuestRepository(),
			feedback:  memory.NewFeedbackRepository(),
		}
	}

	if redis.Enabled() {
		st.conversations = repository.NewRedisConversationStore(redis.Client, conversationTTL)
	} else {
		st.conversations = memory.NewConversationStore()
	}
	return st
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/service-desk/internal/catalog/catalogtest"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/repository"
	"github.com/spec-kit/service-desk/internal/repository/memory"
	"github.com/spec-kit/service-desk/internal/sla"
)

var baseTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []events.Event{}
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (c *recordingChannel) SendText(_ context.Context, _ string, body string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, body)
	return "msg", nil
}

func (c *recordingChannel) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type recordingSink struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (s *recordingSink) Notify(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

// flakyTickets fails breach flag writes for one ticket id.
type flakyTickets struct {
	*memory.TicketRepository
	failID string
}

func (f *flakyTickets) UpdateBreachFlags(ctx context.Context, id string, resp, res bool, at time.Time) error {
	if id == f.failID {
		return errors.New("write failed")
	}
	return f.TicketRepository.UpdateBreachFlags(ctx, id, resp, res, at)
}

type testEnv struct {
	clock        *fakeClock
	tickets      *memory.TicketRepository
	history      *memory.TicketHistoryRepository
	unmatched    *memory.UnmatchedRepository
	guests       *memory.GuestRepository
	feedback     *memory.FeedbackRepository
	events       *recordingDispatcher
	ticketSvc    *TicketService
	intake       *IntakeService
	unmatchedSvc *UnmatchedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:     newFakeClock(),
		tickets:   memory.NewTicketRepository(),
		history:   memory.NewTicketHistoryRepository(),
		unmatched: memory.NewUnmatchedRepository(),
		guests:    memory.NewGuestRepository(),
		feedback:  memory.NewFeedbackRepository(),
		events:    &recordingDispatcher{},
	}
	env.ticketSvc = env.newTicketService(env.tickets, 0)
	provider := catalogtest.Provider()
	env.intake = NewIntakeService(IntakeDependencies{
		Tickets:       env.ticketSvc,
		UnmatchedRepo: env.unmatched,
		GuestRepo:     env.guests,
		Catalog:       provider,
		Dispatcher:    env.events,
		Now:           env.clock.Now,
	})
	env.unmatchedSvc = NewUnmatchedService(UnmatchedDependencies{
		UnmatchedRepo: env.unmatched,
		Tickets:       env.ticketSvc,
		Now:           env.clock.Now,
	})
	return env
}

func (e *testEnv) newTicketService(repo repository.TicketRepository, batch int) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:     repo,
		HistoryRepo:    e.history,
		GuestRepo:      e.guests,
		Catalog:        catalogtest.Provider(),
		Resolver:       sla.NewResolver(config.DefaultFallback()),
		Dispatcher:     e.events,
		Now:            e.clock.Now,
		SweepBatchSize: batch,
	})
}

func (e *testEnv) createTicket(t *testing.T, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := e.ticketSvc.CreateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

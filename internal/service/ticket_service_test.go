package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-desk/internal/catalog/catalogtest"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/sla"
)

func TestCreateTicket_ResolvesDeadlines(t *testing.T) {
	tests := []struct {
		name           string
		input          TicketCreateInput
		wantSource     domain.PolicySource
		wantResponse   time.Duration
		wantResolution time.Duration
		wantDept       *int64
	}{
		{
			name: "override for maintenance air conditioning",
			input: TicketCreateInput{
				RequestTypeID: int64Ptr(catalogtest.TypeAirConditioning),
				DepartmentID:  int64Ptr(catalogtest.DeptMaintenance),
				Priority:      domain.TicketPriorityHigh,
			},
			wantSource:     domain.PolicySourceOverride,
			wantResponse:   5 * time.Minute,
			wantResolution: 30 * time.Minute,
			wantDept:       int64Ptr(catalogtest.DeptMaintenance),
		},
		{
			name: "priority default",
			input: TicketCreateInput{
				RequestTypeID: int64Ptr(catalogtest.TypeTowels),
				Priority:      domain.TicketPriorityNormal,
			},
			wantSource:     domain.PolicySourceDefault,
			wantResponse:   30 * time.Minute,
			wantResolution: 120 * time.Minute,
			wantDept:       int64Ptr(catalogtest.DeptHousekeeping),
		},
		{
			name:           "fallback table",
			input:          TicketCreateInput{Priority: domain.TicketPriorityCritical},
			wantSource:     domain.PolicySourceFallback,
			wantResponse:   5 * time.Minute,
			wantResolution: 5 * time.Minute,
		},
		{
			name: "response longer than resolution is kept as configured",
			input: TicketCreateInput{
				RequestTypeID: int64Ptr(catalogtest.TypeLateCheckout),
				DepartmentID:  int64Ptr(catalogtest.DeptFrontDesk),
				Priority:      "low",
			},
			wantSource:     domain.PolicySourceOverride,
			wantResponse:   60 * time.Minute,
			wantResolution: 30 * time.Minute,
			wantDept:       int64Ptr(catalogtest.DeptFrontDesk),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ticket := env.createTicket(t, tt.input)

			assert.Equal(t, domain.TicketStatusPending, ticket.Status)
			assert.Equal(t, tt.wantSource, ticket.PolicySource)
			assert.Equal(t, baseTime, ticket.CreatedAt)
			assert.Equal(t, baseTime.Add(tt.wantResponse), ticket.ResponseDueAt)
			assert.Equal(t, baseTime.Add(tt.wantResolution), ticket.DueAt)
			assert.Equal(t, tt.wantDept, ticket.DepartmentID)
			assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.ExternalKey)
			assert.Len(t, env.events.ofType(events.EventTicketCreated), 1)

			history, err := env.history.ListByTicket(context.Background(), ticket.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
		})
	}
}

func TestCreateTicket_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ticketSvc.CreateTicket(ctx, TicketCreateInput{Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ticketSvc.CreateTicket(ctx, TicketCreateInput{RequestTypeID: int64Ptr(999)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ticketSvc.CreateTicket(ctx, TicketCreateInput{DepartmentID: int64Ptr(999)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, env.events.ofType(events.EventTicketCreated))
}

func TestCreateTicket_EnrichesGuest(t *testing.T) {
	env := newTestEnv(t)
	env.guests.Add(domain.Guest{ID: "g-1", Name: "Ada", ContactID: "wa:+100", RoomNumber: "204"})

	ticket := env.createTicket(t, TicketCreateInput{ContactID: strPtr("wa:+100")})
	require.NotNil(t, ticket.GuestID)
	assert.Equal(t, "g-1", *ticket.GuestID)
	require.NotNil(t, ticket.RoomNumber)
	assert.Equal(t, "204", *ticket.RoomNumber)

	byRoom := env.createTicket(t, TicketCreateInput{RoomNumber: strPtr("204")})
	require.NotNil(t, byRoom.ContactID)
	assert.Equal(t, "wa:+100", *byRoom.ContactID)
}

func TestCreateTicket_MissingFallbackFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo: env.tickets,
		Resolver:   sla.NewResolver(map[domain.TicketPriority]config.FallbackMinutes{}),
		Now:        env.clock.Now,
	})

	_, err := svc.CreateTicket(context.Background(), TicketCreateInput{Priority: domain.TicketPriorityCritical})
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
	tickets, listErr := svc.ListTickets(context.Background(), TicketListFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, tickets)
}

func TestTicketLifecycle_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{
		RequestTypeID: int64Ptr(catalogtest.TypeTowels),
		ContactID:     strPtr("wa:+100"),
	})

	env.clock.Advance(2 * time.Minute)
	accepted, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "staff-7")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, baseTime.Add(2*time.Minute), *accepted.AcceptedAt)
	assert.Equal(t, "staff-7", *accepted.AssigneeID)

	env.clock.Advance(time.Minute)
	started, err := env.ticketSvc.StartWork(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)

	env.clock.Advance(10 * time.Minute)
	completed, err := env.ticketSvc.Complete(ctx, ticket.ID, strPtr("  fresh towels delivered "))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, completed.Status)
	assert.Equal(t, "fresh towels delivered", *completed.ResolutionNotes)
	assert.False(t, completed.ResolutionBreached)
	assert.False(t, completed.ResponseBreached)

	closed, err := env.ticketSvc.Close(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, *completed.CompletedAt, *closed.CompletedAt)

	history, err := env.ticketSvc.History(ctx, ticket.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, history, 6)
	assert.Len(t, env.events.ofType(events.EventTicketStatusChanged), 4)
	assert.Len(t, env.events.ofType(events.EventTicketAssigned), 1)
	assert.Empty(t, env.events.ofType(events.EventSLABreached))
}

func TestTransitions_RejectInvalidMoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})

	_, err := env.ticketSvc.StartWork(ctx, ticket.ID)
	var transitionErr *domain.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.TicketStatusPending, transitionErr.From)
	assert.Equal(t, domain.TicketStatusInProgress, transitionErr.To)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.ticketSvc.Close(ctx, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := env.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
	assert.Nil(t, stored.StartedAt)
	assert.Nil(t, stored.ClosedAt)

	_, err = env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ticketSvc.StartWork(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitions_ClosedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})
	_, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	_, err = env.ticketSvc.StartWork(ctx, ticket.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.Complete(ctx, ticket.ID, nil)
	require.NoError(t, err)
	_, err = env.ticketSvc.Close(ctx, ticket.ID)
	require.NoError(t, err)

	for _, op := range []func() error{
		func() error { _, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s2"); return err },
		func() error { _, err := env.ticketSvc.StartWork(ctx, ticket.ID); return err },
		func() error { _, err := env.ticketSvc.Complete(ctx, ticket.ID, nil); return err },
		func() error { _, err := env.ticketSvc.Close(ctx, ticket.ID); return err },
		func() error { _, err := env.ticketSvc.Escalate(ctx, ticket.ID, nil); return err },
		func() error { _, err := env.ticketSvc.Reject(ctx, ticket.ID, nil); return err },
	} {
		assert.ErrorIs(t, op(), domain.ErrInvalidTransition)
	}
}

func TestAssignAndAccept_KeepsFirstAcceptance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})

	_, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	_, err = env.ticketSvc.StartWork(ctx, ticket.ID)
	require.NoError(t, err)
	env.clock.Advance(5 * time.Minute)
	escalated, err := env.ticketSvc.Escalate(ctx, ticket.ID, strPtr("needs supervisor"))
	require.NoError(t, err)
	require.NotNil(t, escalated.EscalatedAt)

	env.clock.Advance(5 * time.Minute)
	again, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s2")
	require.NoError(t, err)
	assert.Equal(t, baseTime, *again.AcceptedAt)
	assert.Equal(t, "s2", *again.AssigneeID)

	changed := env.events.ofType(events.EventTicketStatusChanged)
	var escalation *events.TicketStatusChangedPayload
	for _, e := range changed {
		p := e.Payload.(events.TicketStatusChangedPayload)
		if p.NewStatus == domain.TicketStatusEscalated {
			escalation = &p
		}
	}
	require.NotNil(t, escalation)
	assert.Equal(t, "needs supervisor", escalation.Comment)
}

func TestReject_ThenReaccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})

	rejected, err := env.ticketSvc.Reject(ctx, ticket.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)

	accepted, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAccepted, accepted.Status)
}

func TestAssignAndAccept_ConcurrentCallsOneWins(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, TicketCreateInput{})

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []string
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		assignee := "staff-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.ticketSvc.AssignAndAccept(context.Background(), ticket.ID, assignee)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes = append(successes, assignee)
			case errors.Is(err, domain.ErrInvalidTransition):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, workers-1, conflicts)
	stored, err := env.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, successes[0], *stored.AssigneeID)
	assert.Equal(t, 0, env.ticketSvc.locks.size())
}

func TestComplete_LateSetsResolutionBreach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{
		RequestTypeID: int64Ptr(catalogtest.TypeAirConditioning),
		DepartmentID:  int64Ptr(catalogtest.DeptMaintenance),
		Priority:      domain.TicketPriorityHigh,
	})

	env.clock.Advance(time.Minute)
	_, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	_, err = env.ticketSvc.StartWork(ctx, ticket.ID)
	require.NoError(t, err)

	env.clock.Advance(30 * time.Minute)
	completed, err := env.ticketSvc.Complete(ctx, ticket.ID, nil)
	require.NoError(t, err)
	assert.True(t, completed.ResolutionBreached)
	assert.False(t, completed.ResponseBreached)
	assert.True(t, completed.SLABreached())

	breaches := env.events.ofType(events.EventSLABreached)
	require.Len(t, breaches, 1)
	payload := breaches[0].Payload.(events.SLABreachedPayload)
	assert.True(t, payload.ResolutionBreached)
	assert.False(t, payload.ResponseBreached)
}

func TestComplete_ExactlyAtDueIsNotBreached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{Priority: domain.TicketPriorityCritical})

	_, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	_, err = env.ticketSvc.StartWork(ctx, ticket.ID)
	require.NoError(t, err)
	env.clock.Advance(5 * time.Minute)
	completed, err := env.ticketSvc.Complete(ctx, ticket.ID, nil)
	require.NoError(t, err)
	assert.False(t, completed.ResolutionBreached)
}

func TestGetTicket_RejectedTicketKeepsNoClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})

	_, err := env.ticketSvc.Reject(ctx, ticket.ID, nil)
	require.NoError(t, err)

	env.clock.Advance(24 * time.Hour)
	got, err := env.ticketSvc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, got.ResponseBreached)
	assert.False(t, got.ResolutionBreached)
	assert.Empty(t, env.events.ofType(events.EventSLABreached))

	accepted, err := env.ticketSvc.AssignAndAccept(ctx, ticket.ID, "s1")
	require.NoError(t, err)
	assert.True(t, accepted.ResponseBreached, "late re-acceptance is a response breach")
}

func TestReject_AfterResponseDeadlineRecordsBreach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{})

	env.clock.Advance(24 * time.Hour)
	rejected, err := env.ticketSvc.Reject(ctx, ticket.ID, nil)
	require.NoError(t, err)
	assert.True(t, rejected.ResponseBreached)
	assert.Len(t, env.events.ofType(events.EventSLABreached), 1)
}

func TestGetTicket_LazilyPersistsBreach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, TicketCreateInput{RequestTypeID: int64Ptr(catalogtest.TypeTowels)})

	env.clock.Advance(29 * time.Minute)
	fresh, err := env.ticketSvc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, fresh.ResponseBreached)

	env.clock.Advance(2 * time.Minute)
	late, err := env.ticketSvc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, late.ResponseBreached)
	assert.False(t, late.ResolutionBreached)

	stored, err := env.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.ResponseBreached)
	assert.Len(t, env.events.ofType(events.EventSLABreached), 1)

	_, err = env.ticketSvc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, env.events.ofType(events.EventSLABreached), 1)
}

func TestListTickets_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	towels := env.createTicket(t, TicketCreateInput{RequestTypeID: int64Ptr(catalogtest.TypeTowels)})
	env.clock.Advance(time.Second)
	env.createTicket(t, TicketCreateInput{RequestTypeID: int64Ptr(catalogtest.TypeFoodOrder)})
	_, err := env.ticketSvc.AssignAndAccept(ctx, towels.ID, "s1")
	require.NoError(t, err)

	accepted, err := env.ticketSvc.ListTickets(ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusAccepted}})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, towels.ID, accepted[0].ID)

	roomService, err := env.ticketSvc.ListTickets(ctx, TicketListFilter{DepartmentID: int64Ptr(catalogtest.DeptRoomService)})
	require.NoError(t, err)
	assert.Len(t, roomService, 1)

	_, err = env.ticketSvc.History(ctx, "missing", 10, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStringPreview_CutsOnRuneBoundaries(t *testing.T) {
	body := "кондиционер не работает 🥵🥵🥵"

	got := stringPreview(body, 12)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "кондицион...", got)

	assert.Equal(t, "🥵🥵", stringPreview("🥵🥵🥵🥵", 2))
	assert.Equal(t, body, stringPreview("  "+body+"  ", 100))
}

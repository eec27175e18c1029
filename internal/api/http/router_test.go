package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-desk/internal/api/http/handlers"
	"github.com/spec-kit/service-desk/internal/catalog/catalogtest"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/notify"
	"github.com/spec-kit/service-desk/internal/observability"
	"github.com/spec-kit/service-desk/internal/repository/memory"
	"github.com/spec-kit/service-desk/internal/service"
	"github.com/spec-kit/service-desk/internal/sla"
	"github.com/spec-kit/service-desk/internal/worker"
)

type stubDependency struct {
	enabled bool
	err     error
}

func (d stubDependency) Enabled() bool              { return d.enabled }
func (d stubDependency) Ping(context.Context) error { return d.err }

type testServer struct {
	app     *fiber.App
	metrics *observability.Metrics
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	srv := &testServer{metrics: observability.NewMetrics(), now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return srv.now }

	provider := catalogtest.Provider()
	dispatcher := events.NewInMemoryDispatcher(nil)
	guests := memory.NewGuestRepository()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  memory.NewTicketRepository(),
		HistoryRepo: memory.NewTicketHistoryRepository(),
		GuestRepo:   guests,
		Catalog:     provider,
		Resolver:    sla.NewResolver(config.DefaultFallback()),
		Dispatcher:  dispatcher,
		Now:         clock,
	})
	unmatchedRepo := memory.NewUnmatchedRepository()
	intake := service.NewIntakeService(service.IntakeDependencies{
		Tickets:       tickets,
		UnmatchedRepo: unmatchedRepo,
		GuestRepo:     guests,
		Catalog:       provider,
		Dispatcher:    dispatcher,
		Now:           clock,
	})
	unmatched := service.NewUnmatchedService(service.UnmatchedDependencies{
		UnmatchedRepo: unmatchedRepo,
		Tickets:       tickets,
		Now:           clock,
	})
	conversations := service.NewConversationService(service.ConversationDependencies{
		Store:        memory.NewConversationStore(),
		Intake:       intake,
		Channel:      notify.NewLogChannel(nil),
		FeedbackRepo: memory.NewFeedbackRepository(),
		GuestRepo:    guests,
		Catalog:      provider,
		Config: config.ConversationConfig{
			MenuKeywords:      []string{"menu"},
			CancelKeywords:    []string{"cancel"},
			DeclineKeywords:   []string{"no"},
			FeedbackQuestions: []string{"How was your stay?"},
			FeedbackInvite:    "Share feedback?",
		},
		Now: clock,
	})
	sweeper := worker.NewBreachSweeper(tickets, nil, config.SweepConfig{TimeoutSeconds: 5}, nil, srv.metrics)
	refresher := worker.NewCatalogRefresher(provider, nil, "", time.Hour, nil)

	srv.app = fiber.New()
	RegisterMiddlewares(srv.app, nil, srv.metrics, 5*time.Second)
	RegisterRoutes(srv.app, RouteConfig{
		Health: handlers.NewHealthHandler("service-desk", "test", map[string]handlers.Dependency{
			"postgres": stubDependency{},
			"redis":    stubDependency{enabled: true},
		}),
		Tickets:    handlers.NewTicketsHandler(tickets),
		Intake:     handlers.NewIntakeHandler(intake, conversations),
		Unmatched:  handlers.NewUnmatchedHandler(unmatched),
		Operations: handlers.NewOperationsHandler(sweeper, refresher, srv.metrics),
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/tickets", map[string]any{
		"request_type_id": catalogtest.TypeAirConditioning,
		"priority":        "high",
		"room_number":     "204",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	ticket := data(t, body)
	id := ticket["id"].(string)
	assert.Equal(t, "PENDING", ticket["status"])
	assert.Equal(t, "HIGH", ticket["priority"])
	assert.Equal(t, "OVERRIDE", ticket["policy_source"])
	assert.Equal(t, "2024-06-01T09:05:00Z", ticket["response_due_at"])
	assert.Equal(t, "2024-06-01T09:30:00Z", ticket["due_at"])

	status, body = srv.do(t, "POST", "/tickets/"+id+"/accept", map[string]any{"assignee_id": "staff-7"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "ACCEPTED", data(t, body)["status"])

	status, body = srv.do(t, "POST", "/tickets/"+id+"/close", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ACCEPTED", details["from"])
	assert.Equal(t, "CLOSED", details["to"])

	status, _ = srv.do(t, "POST", "/tickets/"+id+"/start", nil)
	require.Equal(t, fiber.StatusOK, status)

	srv.now = srv.now.Add(45 * time.Minute)
	status, body = srv.do(t, "POST", "/tickets/"+id+"/complete", map[string]any{"resolution_notes": "  filter replaced "})
	require.Equal(t, fiber.StatusOK, status, body)
	completed := data(t, body)
	assert.Equal(t, "COMPLETED", completed["status"])
	assert.Equal(t, "filter replaced", completed["resolution_notes"])
	assert.Equal(t, true, completed["resolution_breached"])
	assert.Equal(t, true, completed["sla_breached"])

	status, _ = srv.do(t, "POST", "/tickets/"+id+"/close", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.do(t, "GET", "/tickets/"+id+"/history", nil)
	require.Equal(t, fiber.StatusOK, status)
	entries, ok := body["data"].([]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(entries), 5)
}

func TestTicketErrorsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "GET", "/tickets/does-not-exist", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = srv.do(t, "POST", "/tickets", map[string]any{"priority": "urgent"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.do(t, "GET", "/tickets?status=SLEEPING", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.do(t, "GET", "/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestListTicketsFiltersByDepartment(t *testing.T) {
	srv := newTestServer(t)
	for _, rt := range []int64{catalogtest.TypeTowels, catalogtest.TypeFoodOrder, catalogtest.TypeTowels} {
		status, _ := srv.do(t, "POST", "/tickets", map[string]any{"request_type_id": rt})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := srv.do(t, "GET", "/tickets?department_id=1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]any), 2)
}

func TestClassifyOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/classify", map[string]any{"text": "The AC is not cooling"})
	require.Equal(t, fiber.StatusOK, status)
	result := data(t, body)
	assert.EqualValues(t, catalogtest.TypeAirConditioning, result["request_type_id"])
	assert.EqualValues(t, catalogtest.DeptMaintenance, result["suggested_department_id"])

	status, body = srv.do(t, "POST", "/classify", map[string]any{"text": "hello there"})
	require.Equal(t, fiber.StatusOK, status)
	result = data(t, body)
	assert.Nil(t, result["request_type_id"])
	assert.EqualValues(t, 0, result["confidence"])
	assert.Empty(t, result["matched_keywords"])
}

func TestInboundToUnmatchedResolution(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/inbound", map[string]any{
		"contact_id": "wa:+4915100001",
		"body":       "I think I lost my wallet",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	result := data(t, body)
	assert.Equal(t, "IDLE", result["state"])
	unmatched, ok := result["unmatched"].(map[string]any)
	require.True(t, ok, "expected an unmatched item: %v", result)
	itemID := unmatched["id"].(string)
	assert.EqualValues(t, catalogtest.TypeLostItem, unmatched["suggested_request_type_id"])

	status, body = srv.do(t, "GET", "/unmatched?status=pending", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]any), 1)

	decision := map[string]any{
		"request_type_id": catalogtest.TypeLostItem,
		"department_id":   catalogtest.DeptFrontDesk,
		"priority":        "NORMAL",
		"resolved_by":     "staff-2",
	}
	status, body = srv.do(t, "POST", "/unmatched/"+itemID+"/resolve", decision)
	require.Equal(t, fiber.StatusCreated, status, body)
	ticket := data(t, body)
	assert.EqualValues(t, catalogtest.DeptFrontDesk, ticket["department_id"])

	status, body = srv.do(t, "POST", "/unmatched/"+itemID+"/resolve", decision)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_RESOLVED", errorCode(body))

	status, body = srv.do(t, "GET", "/unmatched/"+itemID, nil)
	require.Equal(t, fiber.StatusOK, status)
	item := data(t, body)
	assert.Equal(t, "RESOLVED", item["status"])
	assert.Equal(t, ticket["id"], item["resolved_ticket_id"])
}

func TestCheckoutStartsFeedbackInvite(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/events/checkout", map[string]any{"contact_id": "wa:+4915100002"})
	require.Equal(t, fiber.StatusAccepted, status, body)
	result := data(t, body)
	assert.Equal(t, "FEEDBACK_INVITED", result["state"])
	assert.Equal(t, []any{"Share feedback?"}, result["replies"])
}

func TestSweepAndMetricsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	status, _ := srv.do(t, "POST", "/tickets", map[string]any{"request_type_id": catalogtest.TypeTowels})
	require.Equal(t, fiber.StatusCreated, status)

	srv.now = srv.now.Add(3 * time.Hour)
	status, body := srv.do(t, "POST", "/sweeps", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	report := data(t, body)
	assert.EqualValues(t, 1, report["checked"])
	assert.EqualValues(t, 1, report["newly_breached"])

	status, body = srv.do(t, "GET", "/metrics", nil)
	require.Equal(t, fiber.StatusOK, status)
	sweeps := data(t, body)["sweeps"].(map[string]any)
	assert.EqualValues(t, 1, sweeps["runs"])
	assert.EqualValues(t, 1, sweeps["newly_breached"])
}

func TestCatalogReloadOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/catalog/reload", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	result := data(t, body)
	assert.EqualValues(t, catalogtest.Provider().Current().Version(), result["version"])
	counts := result["counts"].(map[string]any)
	assert.EqualValues(t, 4, counts["departments"])
}

func TestHealthProbes(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "GET", "/health/live", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, "GET", "/health/ready", nil)
	require.Equal(t, fiber.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestPanicIsRenderedAsInternalError(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, nil, nil, 0)
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", errorCode(body))
}

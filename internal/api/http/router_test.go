package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/http/handlers"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/repository/memory"
	"github.com/spec-kit/dispatch-service/internal/service"
)

type stubBroadcaster struct {
	messages [][]byte
}

func (b *stubBroadcaster) Broadcast(ctx context.Context, event events.Event) error { return nil }

func (b *stubBroadcaster) Listen(ctx context.Context, requestID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, len(b.messages))
	for _, msg := range b.messages {
		ch <- msg
	}
	close(ch)
	return ch, func() {}, nil
}

type testServer struct {
	app    *fiber.App
	db     *memory.DB
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, broadcaster events.Broadcaster, checks map[string]handlers.Check) *testServer {
	t.Helper()
	db := memory.New()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("test-secret", 15)

	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  db.Requests(),
		AnalysisRepo: db.Analyses(),
		AgentRepo:    db.Agents(),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Metrics:      metrics,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil, metrics)})
	RegisterMiddlewares(app, nil, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("dispatch-service", "test", checks),
		Requests:       handlers.NewServiceRequestsHandler(requests),
		Matching:       handlers.NewMatchingHandler(service.NewMatchingService(requests, db.Agents())),
		Events:         handlers.NewEventsHandler(requests, broadcaster, 0, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})
	return &testServer{app: app, db: db, tokens: tokens}
}

func (s *testServer) token(t *testing.T, subject string, role domain.Role) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(subject, role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func decodeRequest(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

// markAnalyzed performs the dispatcher's analysis step directly against the store.
func (s *testServer) markAnalyzed(t *testing.T, id string, urgency int) {
	t.Helper()
	ctx := context.Background()
	req, err := s.db.Requests().GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	analysis, err := domain.NewServiceAnalysis(domain.NewServiceAnalysisInput{
		ServiceRequestID: id, ComplexityLevel: 3, UrgencyLevel: urgency, SafetyAdvice: "Switch off the main breaker",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := req.MarkAsAnalyzed(urgency); err != nil {
		t.Fatal(err)
	}
	if err := s.db.Analyses().RecordAnalysis(ctx, req, analysis); err != nil {
		t.Fatal(err)
	}
}

func (s *testServer) create(t *testing.T, customerToken string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/service-requests", customerToken, map[string]any{
		"category_id": "cat-electric",
		"description": "Sparks from the kitchen outlet",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d (%+v)", status, env.Error)
	}
	return decodeRequest(t, env)["id"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, events.NewLocalBroadcaster(), map[string]handlers.Check{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	status, _ := srv.do(t, http.MethodGet, "/health/live", "", nil)
	if status != http.StatusOK {
		t.Fatalf("live status = %d", status)
	}

	status, env := srv.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d", status)
	}
	if env.Error == nil || env.Error.Details["redis"] != "connection refused" || env.Error.Details["postgres"] != "ok" {
		t.Fatalf("unexpected readiness body %+v", env.Error)
	}
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, events.NewLocalBroadcaster(), nil)
	customerToken := srv.token(t, "customer-1", domain.RoleCustomer)
	staffToken := srv.token(t, "staff-1", domain.RoleStaff)

	agent, err := domain.NewServiceAgent("Dana Reyes")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := agent.AddCapability("cat-electric", 4); err != nil {
		t.Fatal(err)
	}
	if err := srv.db.Agents().Save(context.Background(), agent); err != nil {
		t.Fatal(err)
	}
	agentToken := srv.token(t, agent.ID(), domain.RoleAgent)

	id := srv.create(t, customerToken)
	base := "/service-requests/" + id

	status, env := srv.do(t, http.MethodGet, base, customerToken, nil)
	if status != http.StatusOK || decodeRequest(t, env)["status"] != string(domain.StatusAwaitingAnalysis) {
		t.Fatalf("get status = %d body %s", status, env.Data)
	}

	srv.markAnalyzed(t, id, 2)

	status, env = srv.do(t, http.MethodGet, base+"/analysis", customerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("analysis status = %d", status)
	}

	status, env = srv.do(t, http.MethodGet, base+"/matches", staffToken, nil)
	if status != http.StatusPreconditionFailed {
		t.Fatalf("matches before evaluate = %d", status)
	}

	steps := []struct {
		path   string
		token  string
		body   any
		status domain.ServiceStatus
	}{
		{"/evaluate", staffToken, map[string]any{"complexity": 3}, domain.StatusPendingReview},
		{"/approve", staffToken, nil, domain.StatusApproved},
		{"/assign", staffToken, map[string]any{"agent_id": agent.ID(), "amount": 120.5, "currency": "usd"}, domain.StatusAssigned},
		{"/start", agentToken, nil, domain.StatusInProgress},
		{"/complete", agentToken, nil, domain.StatusCompleted},
	}
	for _, step := range steps {
		if step.path == "/assign" {
			status, env = srv.do(t, http.MethodGet, base+"/matches", staffToken, nil)
			if status != http.StatusOK {
				t.Fatalf("matches status = %d (%+v)", status, env.Error)
			}
			var matches []map[string]any
			if err := json.Unmarshal(env.Data, &matches); err != nil {
				t.Fatal(err)
			}
			if len(matches) != 1 || matches[0]["agent_id"] != agent.ID() || matches[0]["is_recommended"] != true {
				t.Fatalf("unexpected matches %v", matches)
			}
		}

		status, env = srv.do(t, http.MethodPost, base+step.path, step.token, step.body)
		if status != http.StatusOK {
			t.Fatalf("%s status = %d (%+v)", step.path, status, env.Error)
		}
		got := decodeRequest(t, env)
		if got["status"] != string(step.status) {
			t.Fatalf("%s: status %v, want %s", step.path, got["status"], step.status)
		}
	}

	status, env = srv.do(t, http.MethodGet, base, customerToken, nil)
	got := decodeRequest(t, env)
	cost, _ := got["estimated_cost"].(map[string]any)
	if status != http.StatusOK || cost["currency"] != "USD" || cost["amount"] != 120.5 {
		t.Fatalf("final request %v", got)
	}
}

func TestInvalidTransitionRendersDetails(t *testing.T) {
	srv := newTestServer(t, events.NewLocalBroadcaster(), nil)
	customerToken := srv.token(t, "customer-1", domain.RoleCustomer)
	staffToken := srv.token(t, "staff-1", domain.RoleStaff)
	id := srv.create(t, customerToken)

	status, env := srv.do(t, http.MethodPost, "/service-requests/"+id+"/evaluate", staffToken, map[string]any{"complexity": 2})
	if status != http.StatusConflict {
		t.Fatalf("status = %d", status)
	}
	if env.Error == nil || env.Error.Code != "INVALID_STATE_TRANSITION" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if env.Error.Details["current"] != string(domain.StatusAwaitingAnalysis) {
		t.Fatalf("details = %v", env.Error.Details)
	}
}

func TestAccessControl(t *testing.T) {
	srv := newTestServer(t, events.NewLocalBroadcaster(), nil)
	customerToken := srv.token(t, "customer-1", domain.RoleCustomer)
	otherToken := srv.token(t, "customer-2", domain.RoleCustomer)
	staffToken := srv.token(t, "staff-1", domain.RoleStaff)
	id := srv.create(t, customerToken)
	base := "/service-requests/" + id

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, base, "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, base, "not-a-jwt", nil, http.StatusUnauthorized},
		{"other customer hidden", http.MethodGet, base, otherToken, nil, http.StatusNotFound},
		{"customer cannot evaluate", http.MethodPost, base + "/evaluate", customerToken, map[string]any{"complexity": 2}, http.StatusForbidden},
		{"staff cannot create", http.MethodPost, "/service-requests", staffToken, map[string]any{"category_id": "c", "description": "d"}, http.StatusForbidden},
		{"customer cannot match", http.MethodGet, base + "/matches", customerToken, nil, http.StatusForbidden},
		{"unknown request", http.MethodGet, "/service-requests/missing", staffToken, nil, http.StatusNotFound},
		{"blank description", http.MethodPost, "/service-requests", customerToken, map[string]any{"category_id": "c", "description": "  "}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := srv.do(t, tc.method, tc.path, tc.token, tc.body)
			if status != tc.want {
				t.Fatalf("status = %d, want %d", status, tc.want)
			}
		})
	}
}

func TestEventsStreamRelaysBroadcasts(t *testing.T) {
	payload := []byte(`{"type":"service_request.safety_advice"}`)
	srv := newTestServer(t, &stubBroadcaster{messages: [][]byte{payload}}, nil)
	customerToken := srv.token(t, "customer-1", domain.RoleCustomer)
	id := srv.create(t, customerToken)

	req := httptest.NewRequest(http.MethodGet, "/service-requests/"+id+"/events?access_token="+customerToken, nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "data: "+string(payload)) {
		t.Fatalf("body = %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, events.NewLocalBroadcaster(), nil)
	srv.do(t, http.MethodGet, "/health/live", "", nil)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "dispatch_http_requests_total") {
		t.Fatalf("metrics status %d body %q", resp.StatusCode, body)
	}
}

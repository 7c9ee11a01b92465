package domain

import (
	"errors"
	"strings"
	"testing"
)

func newRequest(t *testing.T) *ServiceRequest {
	t.Helper()
	req, err := NewServiceRequest(NewServiceRequestInput{
		CustomerID:  "customer-1",
		CategoryID:  "category-1",
		Description: "Breaker keeps tripping in the kitchen",
	})
	if err != nil {
		t.Fatalf("NewServiceRequest: %v", err)
	}
	return req
}

// requestIn drives a fresh request to the wanted status through legal transitions.
func requestIn(t *testing.T, status ServiceStatus) *ServiceRequest {
	t.Helper()
	req := newRequest(t)
	steps := map[ServiceStatus]func() error{
		StatusCreated:        func() error { return req.MarkAsAnalyzed(2) },
		StatusUrgentDispatch: func() error { return req.MarkAsAnalyzed(5) },
		StatusPendingReview:  func() error { return req.Evaluate(3) },
		StatusApproved:       func() error { return req.Approve() },
		StatusAssigned:       func() error { return req.AssignProvider("agent-1", Money{Amount: 120}) },
		StatusInProgress:     func() error { return req.Start() },
		StatusCompleted:      func() error { return req.Complete() },
		StatusCancelled:      func() error { return req.Cancel("customer changed plans") },
	}
	var path []ServiceStatus
	switch status {
	case StatusAwaitingAnalysis:
	case StatusCreated, StatusUrgentDispatch, StatusCancelled:
		path = []ServiceStatus{status}
	case StatusPendingReview:
		path = []ServiceStatus{StatusCreated, StatusPendingReview}
	case StatusApproved:
		path = []ServiceStatus{StatusCreated, StatusPendingReview, StatusApproved}
	case StatusAssigned:
		path = []ServiceStatus{StatusCreated, StatusPendingReview, StatusAssigned}
	case StatusInProgress:
		path = []ServiceStatus{StatusCreated, StatusPendingReview, StatusAssigned, StatusInProgress}
	case StatusCompleted:
		path = []ServiceStatus{StatusCreated, StatusPendingReview, StatusAssigned, StatusInProgress, StatusCompleted}
	default:
		t.Fatalf("no path to %s", status)
	}
	for _, step := range path {
		if err := steps[step](); err != nil {
			t.Fatalf("step to %s: %v", step, err)
		}
	}
	if req.Status() != status {
		t.Fatalf("status = %s, want %s", req.Status(), status)
	}
	return req
}

func TestNewServiceRequestValidation(t *testing.T) {
	tooLong := strings.Repeat("x", MaxDescriptionLength+1)
	bad := 6
	tests := []struct {
		name    string
		input   NewServiceRequestInput
		wantErr error
	}{
		{"blank description", NewServiceRequestInput{CustomerID: "c", CategoryID: "k", Description: "   "}, ErrInvalidDescription},
		{"description too long", NewServiceRequestInput{CustomerID: "c", CategoryID: "k", Description: tooLong}, ErrInvalidDescription},
		{"missing customer", NewServiceRequestInput{CategoryID: "k", Description: "fix"}, ErrCustomerRequired},
		{"missing category", NewServiceRequestInput{CustomerID: "c", Description: "fix"}, ErrCategoryRequired},
		{"suggested complexity out of range", NewServiceRequestInput{CustomerID: "c", CategoryID: "k", Description: "fix", SuggestedComplexity: &bad}, ErrInvalidComplexity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServiceRequest(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewServiceRequestStartsAwaitingAnalysis(t *testing.T) {
	req := newRequest(t)
	if req.Status() != StatusAwaitingAnalysis {
		t.Fatalf("status = %s", req.Status())
	}
	if _, ok := req.Complexity(); ok {
		t.Fatal("complexity must be absent before evaluation")
	}
	if _, ok := req.EstimatedCost(); ok {
		t.Fatal("estimated cost must be absent before assignment")
	}
	if req.ID() == "" || req.CreatedAt().IsZero() {
		t.Fatal("id and created_at must be set")
	}
}

func TestMarkAsAnalyzedRoutesByUrgency(t *testing.T) {
	for urgency := 1; urgency <= 5; urgency++ {
		req := newRequest(t)
		if err := req.MarkAsAnalyzed(urgency); err != nil {
			t.Fatalf("urgency %d: %v", urgency, err)
		}
		want := StatusCreated
		if urgency >= 4 {
			want = StatusUrgentDispatch
		}
		if req.Status() != want {
			t.Errorf("urgency %d: status = %s, want %s", urgency, req.Status(), want)
		}
	}
}

func TestMarkAsAnalyzedOnlyOnce(t *testing.T) {
	req := newRequest(t)
	if err := req.MarkAsAnalyzed(2); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := req.MarkAsAnalyzed(2)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("second call err = %v, want invalid transition", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.Current != StatusCreated || len(te.Required) != 1 || te.Required[0] != StatusAwaitingAnalysis {
		t.Fatalf("unexpected transition error details: %+v", te)
	}
}

func TestMarkAsAnalyzedRejectsOutOfRangeUrgency(t *testing.T) {
	req := newRequest(t)
	if err := req.MarkAsAnalyzed(0); !errors.Is(err, ErrInvalidUrgency) {
		t.Fatalf("err = %v", err)
	}
	if req.Status() != StatusAwaitingAnalysis {
		t.Fatalf("status changed to %s", req.Status())
	}
}

func TestHappyPathChain(t *testing.T) {
	req := requestIn(t, StatusCreated)
	if err := req.Evaluate(3); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if c, ok := req.Complexity(); !ok || c != 3 {
		t.Fatalf("complexity = %d, %v", c, ok)
	}
	if err := req.AssignProvider("agent-7", Money{Amount: 80, Currency: "eur"}); err != nil {
		t.Fatalf("AssignProvider: %v", err)
	}
	cost, ok := req.EstimatedCost()
	if !ok || cost.Currency != "EUR" || cost.Amount != 80 {
		t.Fatalf("cost = %+v, %v", cost, ok)
	}
	if id, _ := req.AssignedProviderID(); id != "agent-7" {
		t.Fatalf("provider = %q", id)
	}
	if err := req.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := req.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if req.Status() != StatusCompleted {
		t.Fatalf("status = %s", req.Status())
	}
}

func TestApproveThenAssign(t *testing.T) {
	req := requestIn(t, StatusApproved)
	if err := req.AssignProvider("agent-1", Money{Amount: 10}); err != nil {
		t.Fatalf("AssignProvider from APPROVED: %v", err)
	}
	if req.Status() != StatusAssigned {
		t.Fatalf("status = %s", req.Status())
	}
}

func TestEvaluateRejectedFromUrgentDispatch(t *testing.T) {
	req := requestIn(t, StatusUrgentDispatch)
	err := req.Evaluate(5)
	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if transitionErr.Operation != OpEvaluate || transitionErr.Current != StatusUrgentDispatch {
		t.Fatalf("unexpected error %+v", transitionErr)
	}
	if len(transitionErr.Required) != 1 || transitionErr.Required[0] != StatusCreated {
		t.Fatalf("required = %v", transitionErr.Required)
	}
	if req.Status() != StatusUrgentDispatch {
		t.Fatalf("status moved to %s", req.Status())
	}
	if _, ok := req.Complexity(); ok {
		t.Fatal("complexity set on rejected evaluate")
	}
}

func TestOutOfOrderTransitionsFail(t *testing.T) {
	tests := []struct {
		name string
		from ServiceStatus
		op   func(*ServiceRequest) error
	}{
		{"start before assign", StatusPendingReview, (*ServiceRequest).Start},
		{"complete before start", StatusAssigned, (*ServiceRequest).Complete},
		{"evaluate while awaiting analysis", StatusAwaitingAnalysis, func(r *ServiceRequest) error { return r.Evaluate(2) }},
		{"evaluate twice", StatusPendingReview, func(r *ServiceRequest) error { return r.Evaluate(2) }},
		{"approve from created", StatusCreated, (*ServiceRequest).Approve},
		{"approve twice", StatusApproved, (*ServiceRequest).Approve},
		{"assign from created", StatusCreated, func(r *ServiceRequest) error { return r.AssignProvider("a", Money{}) }},
		{"assign twice", StatusAssigned, func(r *ServiceRequest) error { return r.AssignProvider("a", Money{}) }},
		{"start after completion", StatusCompleted, (*ServiceRequest).Start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestIn(t, tt.from)
			if err := tt.op(req); !errors.Is(err, ErrInvalidStateTransition) {
				t.Fatalf("err = %v, want invalid transition", err)
			}
			if req.Status() != tt.from {
				t.Fatalf("status moved to %s", req.Status())
			}
		})
	}
}

func TestCancel(t *testing.T) {
	for _, status := range AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			req := requestIn(t, status)
			err := req.Cancel("no longer needed")
			if status.IsTerminal() {
				if !errors.Is(err, ErrInvalidStateTransition) {
					t.Fatalf("err = %v, want invalid transition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			if req.Status() != StatusCancelled || req.CancellationReason() != "no longer needed" {
				t.Fatalf("status=%s reason=%q", req.Status(), req.CancellationReason())
			}
		})
	}
}

func TestCancelRequiresReason(t *testing.T) {
	req := newRequest(t)
	if err := req.Cancel("  "); !errors.Is(err, ErrCancellationReasonRequired) {
		t.Fatalf("err = %v", err)
	}
	if req.Status() != StatusAwaitingAnalysis {
		t.Fatalf("status = %s", req.Status())
	}
}

func TestUpdateDescription(t *testing.T) {
	allowed := map[ServiceStatus]bool{
		StatusAwaitingAnalysis: true,
		StatusCreated:          true,
		StatusUrgentDispatch:   true,
		StatusPendingReview:    true,
		StatusApproved:         true,
	}
	for _, status := range AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			req := requestIn(t, status)
			err := req.Update("Water heater leaking")
			if allowed[status] {
				if err != nil {
					t.Fatalf("Update: %v", err)
				}
				if req.Description() != "Water heater leaking" {
					t.Fatalf("description = %q", req.Description())
				}
				return
			}
			if !errors.Is(err, ErrInvalidStateTransition) {
				t.Fatalf("err = %v, want invalid transition", err)
			}
		})
	}
}

func TestUpdateDescriptionLength(t *testing.T) {
	req := newRequest(t)
	if err := req.Update(strings.Repeat("a", MaxUpdatedDescriptionLength)); err != nil {
		t.Fatalf("max length rejected: %v", err)
	}
	if err := req.Update(strings.Repeat("a", MaxUpdatedDescriptionLength+1)); !errors.Is(err, ErrInvalidDescription) {
		t.Fatalf("err = %v", err)
	}
	if err := req.Update(""); !errors.Is(err, ErrInvalidDescription) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssignProviderValidation(t *testing.T) {
	req := requestIn(t, StatusPendingReview)
	if err := req.AssignProvider("", Money{}); !errors.Is(err, ErrProviderRequired) {
		t.Fatalf("err = %v", err)
	}
	if err := req.AssignProvider("agent", Money{Amount: -1}); !errors.Is(err, ErrInvalidMoney) {
		t.Fatalf("err = %v", err)
	}
	if req.Status() != StatusPendingReview {
		t.Fatalf("status = %s", req.Status())
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	req := requestIn(t, StatusPendingReview)
	state := req.Snapshot()
	*state.Complexity = 1
	if c, _ := req.Complexity(); c != 3 {
		t.Fatalf("snapshot mutation leaked into aggregate: %d", c)
	}
	restored := RestoreServiceRequest(state)
	if c, _ := restored.Complexity(); c != 1 {
		t.Fatalf("restored complexity = %d", c)
	}
}

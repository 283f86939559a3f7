package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestWorkflow(t *testing.T, store *SQLiteStore, id, action, identifier string) *Workflow {
	t.Helper()

	wf := &Workflow{
		ID:           id,
		Action:       action,
		ResourceType: "AWS::Glue::Job",
		Identifier:   identifier,
		Request:      `{"desiredResourceState":{"Name":"` + identifier + `"}}`,
	}
	if err := store.CreateWorkflow(context.Background(), wf); err != nil {
		t.Fatalf("failed to create workflow: %v", err)
	}
	return wf
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	// A second migration is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to re-run migrations: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestHealthCheckBeforeInit(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Error("expected error before Init")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tables := []string{"workflows", "invocations", "events", "resource_state"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestWorkflowLifecycle tests workflow creation, invocation recording and completion
func TestWorkflowLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wf := createTestWorkflow(t, store, "wf-001", "CREATE", "nightly-etl")

	got, err := store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if got.Status != WorkflowStatusRunning {
		t.Errorf("expected status %s, got %s", WorkflowStatusRunning, got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("expected CompletedAt to be nil for a running workflow")
	}

	throttled := "Throttling"
	cb := `{"preExistenceCheckDone":true}`
	invocations := []*Invocation{
		{ID: "inv-1", WorkflowID: wf.ID, Attempt: 1, Status: "IN_PROGRESS", CallbackDelaySeconds: 1, CallbackContext: &cb, Event: `{}`, DurationMs: 12},
		{ID: "inv-2", WorkflowID: wf.ID, Attempt: 2, Status: "IN_PROGRESS", ErrorCode: &throttled, CallbackDelaySeconds: 1, CallbackContext: &cb, Event: `{}`, DurationMs: 30},
		{ID: "inv-3", WorkflowID: wf.ID, Attempt: 3, Status: "SUCCESS", Event: `{"status":"SUCCESS"}`, DurationMs: 40},
	}
	for _, inv := range invocations {
		if err := store.RecordInvocation(ctx, inv); err != nil {
			t.Fatalf("failed to record invocation %s: %v", inv.ID, err)
		}
	}

	result := `{"status":"SUCCESS"}`
	if err := store.CompleteWorkflow(ctx, wf.ID, WorkflowStatusSucceeded, nil, nil, &result); err != nil {
		t.Fatalf("failed to complete workflow: %v", err)
	}

	got, err = store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if got.Status != WorkflowStatusSucceeded {
		t.Errorf("expected status %s, got %s", WorkflowStatusSucceeded, got.Status)
	}
	if got.Invocations != 3 {
		t.Errorf("expected 3 invocations, got %d", got.Invocations)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if got.Result == nil || *got.Result != result {
		t.Errorf("unexpected result: %v", got.Result)
	}

	listed, err := store.ListInvocations(ctx, wf.ID)
	if err != nil {
		t.Fatalf("failed to list invocations: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(listed))
	}
	for i, inv := range listed {
		if inv.Attempt != i+1 {
			t.Errorf("invocation %d has attempt %d", i, inv.Attempt)
		}
	}
	if listed[1].ErrorCode == nil || *listed[1].ErrorCode != throttled {
		t.Errorf("expected throttled error code on attempt 2, got %v", listed[1].ErrorCode)
	}
	if listed[2].CallbackContext != nil {
		t.Error("expected no callback context on the terminal invocation")
	}
}

func TestRecordInvocationRejectsDuplicateAttempt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wf := createTestWorkflow(t, store, "wf-dup", "READ", "job")

	if err := store.RecordInvocation(ctx, &Invocation{ID: "a", WorkflowID: wf.ID, Attempt: 1, Status: "SUCCESS", Event: `{}`}); err != nil {
		t.Fatalf("failed to record invocation: %v", err)
	}
	if err := store.RecordInvocation(ctx, &Invocation{ID: "b", WorkflowID: wf.ID, Attempt: 1, Status: "SUCCESS", Event: `{}`}); err == nil {
		t.Error("expected error for duplicate attempt")
	}

	got, err := store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if got.Invocations != 1 {
		t.Errorf("failed insert should not count, got %d invocations", got.Invocations)
	}
}

func TestRecordInvocationUnknownWorkflow(t *testing.T) {
	store := setupTestStore(t)

	err := store.RecordInvocation(context.Background(), &Invocation{ID: "x", WorkflowID: "missing", Attempt: 1, Status: "SUCCESS", Event: `{}`})
	if err == nil {
		t.Error("expected error for unknown workflow")
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetWorkflow(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = store.CompleteWorkflow(context.Background(), "nope", WorkflowStatusFailed, nil, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListWorkflowsFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, tc := range []struct{ id, action, identifier string }{
		{"wf-a", "CREATE", "job-a"},
		{"wf-b", "UPDATE", "job-a"},
		{"wf-c", "CREATE", "job-b"},
	} {
		wf := &Workflow{
			ID:           tc.id,
			Action:       tc.action,
			ResourceType: "AWS::Glue::Job",
			Identifier:   tc.identifier,
			Request:      `{}`,
			StartedAt:    base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateWorkflow(ctx, wf); err != nil {
			t.Fatalf("failed to create workflow: %v", err)
		}
	}
	code := "NotFound"
	if err := store.CompleteWorkflow(ctx, "wf-c", WorkflowStatusFailed, &code, nil, nil); err != nil {
		t.Fatalf("failed to complete workflow: %v", err)
	}

	all, err := store.ListWorkflows(ctx, WorkflowFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list workflows: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 workflows, got %d", len(all))
	}
	if all[0].ID != "wf-c" {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}

	create := "CREATE"
	creates, err := store.ListWorkflows(ctx, WorkflowFilter{Action: &create}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list workflows: %v", err)
	}
	if len(creates) != 2 {
		t.Errorf("expected 2 CREATE workflows, got %d", len(creates))
	}

	jobA := "job-a"
	forJob, err := store.ListWorkflows(ctx, WorkflowFilter{Identifier: &jobA}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list workflows: %v", err)
	}
	if len(forJob) != 2 {
		t.Errorf("expected 2 workflows for job-a, got %d", len(forJob))
	}

	failed := WorkflowStatusFailed
	failures, err := store.ListWorkflows(ctx, WorkflowFilter{Status: &failed}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list workflows: %v", err)
	}
	if len(failures) != 1 || failures[0].ErrorCode == nil || *failures[0].ErrorCode != code {
		t.Errorf("unexpected failed workflows: %+v", failures)
	}

	page, err := store.ListWorkflows(ctx, WorkflowFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("failed to list workflows: %v", err)
	}
	if len(page) != 1 || page[0].ID != "wf-b" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestEventOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	wf := createTestWorkflow(t, store, "wf-events", "DELETE", "job")

	events := []*Event{
		{WorkflowID: &wf.ID, Level: EventLevelInfo, Message: "Workflow started", Timestamp: now},
		{WorkflowID: &wf.ID, Level: EventLevelWarning, Message: "Throttled, retrying", Timestamp: now.Add(time.Second)},
		{WorkflowID: &wf.ID, Level: EventLevelError, Message: "Attempts exhausted", Timestamp: now.Add(2 * time.Second)},
	}
	for _, event := range events {
		if err := store.AppendEvent(ctx, event); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
		if event.ID == 0 {
			t.Error("expected event ID to be set after insert")
		}
	}

	retrieved, err := store.GetEvents(ctx, &wf.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(retrieved) != 3 {
		t.Errorf("expected 3 events, got %d", len(retrieved))
	}

	errorLevel := EventLevelError
	filtered, err := store.GetEvents(ctx, nil, &errorLevel, 10, 0)
	if err != nil {
		t.Fatalf("failed to get filtered events: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(filtered))
	}
	if filtered[0].Message != "Attempts exhausted" {
		t.Errorf("unexpected event: %s", filtered[0].Message)
	}
}

func TestResourceStateOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	state := &ResourceState{
		ID:             "rs-1",
		ResourceType:   "AWS::Glue::Job",
		Identifier:     "nightly-etl",
		State:          `{"Name":"nightly-etl","MaxRetries":1}`,
		LastWorkflowID: "wf-1",
	}
	if err := store.UpsertResourceState(ctx, state); err != nil {
		t.Fatalf("failed to upsert resource state: %v", err)
	}
	if state.Hash != HashState(state.State) {
		t.Error("expected hash to be filled in")
	}

	updated := &ResourceState{
		ID:             "rs-2",
		ResourceType:   "AWS::Glue::Job",
		Identifier:     "nightly-etl",
		State:          `{"Name":"nightly-etl","MaxRetries":2}`,
		LastWorkflowID: "wf-2",
	}
	if err := store.UpsertResourceState(ctx, updated); err != nil {
		t.Fatalf("failed to upsert resource state: %v", err)
	}

	got, err := store.GetResourceState(ctx, "AWS::Glue::Job", "nightly-etl")
	if err != nil {
		t.Fatalf("failed to get resource state: %v", err)
	}
	if got.ID != "rs-1" {
		t.Errorf("upsert should keep the original id, got %s", got.ID)
	}
	if got.State != updated.State || got.LastWorkflowID != "wf-2" {
		t.Errorf("unexpected state after upsert: %+v", got)
	}

	states, err := store.ListResourceStates(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list resource states: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("expected 1 resource state, got %d", len(states))
	}

	if err := store.DeleteResourceState(ctx, "AWS::Glue::Job", "nightly-etl"); err != nil {
		t.Fatalf("failed to delete resource state: %v", err)
	}
	if _, err := store.GetResourceState(ctx, "AWS::Glue::Job", "nightly-etl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteResourceState(ctx, "AWS::Glue::Job", "nightly-etl"); err != nil {
		t.Errorf("deleting a missing state should not fail: %v", err)
	}
}

func TestCascadeDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wf := createTestWorkflow(t, store, "wf-cascade", "CREATE", "job")
	if err := store.RecordInvocation(ctx, &Invocation{ID: "inv-c", WorkflowID: wf.ID, Attempt: 1, Status: "SUCCESS", Event: `{}`}); err != nil {
		t.Fatalf("failed to record invocation: %v", err)
	}
	if err := store.AppendEvent(ctx, &Event{WorkflowID: &wf.ID, Level: EventLevelInfo, Message: "done"}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	if err := store.DeleteWorkflow(ctx, wf.ID); err != nil {
		t.Fatalf("failed to delete workflow: %v", err)
	}

	invocations, err := store.ListInvocations(ctx, wf.ID)
	if err != nil {
		t.Fatalf("failed to list invocations: %v", err)
	}
	if len(invocations) != 0 {
		t.Errorf("expected 0 invocations after cascade delete, got %d", len(invocations))
	}

	events, err := store.GetEvents(ctx, &wf.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events after cascade delete, got %d", len(events))
	}

	if err := store.DeleteWorkflow(ctx, wf.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

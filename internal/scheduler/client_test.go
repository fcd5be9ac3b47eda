package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func testClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	client := &Client{client: asynq.NewClient(opt), queue: "test"}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { inspector.Close() })
	return client, inspector
}

func TestEnqueueRoute(t *testing.T) {
	client, inspector := testClient(t)

	workspaceID := uuid.New()
	leadID := uuid.New()
	if err := client.EnqueueRoute(context.Background(), workspaceID, leadID); err != nil {
		t.Fatalf("enqueue route: %v", err)
	}

	tasks, err := inspector.ListPendingTasks("test")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskLeadRoute {
		t.Fatalf("expected %s task, got %s", TaskLeadRoute, tasks[0].Type)
	}

	var payload LeadRoutePayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LeadID != leadID.String() || payload.WorkspaceID != workspaceID.String() {
		t.Fatalf("payload does not round-trip: %+v", payload)
	}
}

func TestEnqueueSweep(t *testing.T) {
	client, inspector := testClient(t)

	if err := client.EnqueueSweep(context.Background()); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}

	tasks, err := inspector.ListPendingTasks("test")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Type != TaskMaintenanceSweep {
		t.Fatalf("expected one %s task, got %+v", TaskMaintenanceSweep, tasks)
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var client *Client
	if err := client.EnqueueRoute(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("nil client must swallow enqueues: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client close: %v", err)
	}
}

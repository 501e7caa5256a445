package replication

import (
	"context"
	"net/http"
	"testing"

	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/registry"
)

func TestApply(t *testing.T) {
	local := registry.NewMemory(logger.Nop())
	var forwarded int
	local.SetReplicator(replicatorFunc(func(ctx context.Context, action registry.Action, inst registry.Instance) error {
		forwarded++
		return nil
	}))
	ctx := context.Background()
	info := registry.Instance{ID: "i-1", App: "ORDERS", HostName: "orders-1"}

	resp := Apply(ctx, local, Batch{ReplicationList: []Instance{
		NewInstance(registry.ActionRegister, info),
		NewInstance(registry.ActionHeartbeat, info),
		NewInstance(registry.ActionStatusUpdate, registry.Instance{ID: "i-1", App: "ORDERS", Status: registry.StatusDown}),
		NewInstance(registry.ActionHeartbeat, registry.Instance{ID: "missing", App: "ORDERS"}),
		{AppName: "ORDERS", ID: "i-1", Action: registry.ActionRegister},
		{AppName: "ORDERS", ID: "i-1", Action: "Evict"},
		NewInstance(registry.ActionCancel, info),
	}})

	want := []int{
		http.StatusOK, http.StatusOK, http.StatusOK, http.StatusNotFound,
		http.StatusBadRequest, http.StatusBadRequest, http.StatusOK,
	}
	if len(resp.ResponseList) != len(want) {
		t.Fatalf("expected %d responses, got %d", len(want), len(resp.ResponseList))
	}
	for i, w := range want {
		if resp.ResponseList[i].StatusCode != w {
			t.Errorf("item %d: status %d, want %d", i, resp.ResponseList[i].StatusCode, w)
		}
	}
	if resp.ResponseList[1].ResponseEntity == nil {
		t.Error("expected heartbeat response to carry the instance")
	}
	if _, ok := local.Get("ORDERS", "i-1"); ok {
		t.Error("expected instance to be cancelled")
	}
	if forwarded != 0 {
		t.Errorf("expected replicated batch not to be forwarded, got %d", forwarded)
	}
}

type replicatorFunc func(ctx context.Context, action registry.Action, inst registry.Instance) error

func (f replicatorFunc) Replicate(ctx context.Context, action registry.Action, inst registry.Instance) error {
	return f(ctx, action, inst)
}

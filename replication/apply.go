package replication

import (
	"context"
	"net/http"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/registry"
)

// Apply applies a batch received from a peer to reg, marking every call as
// replication so it is not forwarded again. The response has one entry per
// item, in order.
func Apply(ctx context.Context, reg registry.Registry, batch Batch) BatchResponse {
	out := BatchResponse{ResponseList: make([]InstanceResponse, 0, len(batch.ReplicationList))}
	for _, item := range batch.ReplicationList {
		out.ResponseList = append(out.ResponseList, applyOne(ctx, reg, item))
	}
	return out
}

func applyOne(ctx context.Context, reg registry.Registry, item Instance) InstanceResponse {
	var err error
	switch item.Action {
	case registry.ActionRegister:
		if item.InstanceInfo == nil {
			return InstanceResponse{StatusCode: http.StatusBadRequest}
		}
		err = reg.Register(ctx, *item.InstanceInfo, true)
	case registry.ActionCancel:
		err = reg.Cancel(ctx, item.AppName, item.ID, true)
	case registry.ActionHeartbeat:
		err = reg.Renew(ctx, item.AppName, item.ID, true)
	case registry.ActionStatusUpdate:
		err = reg.StatusUpdate(ctx, item.AppName, item.ID, item.Status, true)
	default:
		return InstanceResponse{StatusCode: http.StatusBadRequest}
	}

	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return InstanceResponse{StatusCode: appErr.HTTPStatus}
		}
		return InstanceResponse{StatusCode: http.StatusInternalServerError}
	}
	resp := InstanceResponse{StatusCode: http.StatusOK}
	if item.Action == registry.ActionHeartbeat {
		if inst, ok := reg.Get(item.AppName, item.ID); ok {
			resp.ResponseEntity = &inst
		}
	}
	return resp
}

package replication

import "github.com/kbukum/peerkit/registry"

// HeaderReplication marks a request as peer replication traffic.
const HeaderReplication = "x-netflix-discovery-replication"

// BatchPath is the batch endpoint, relative to a peer service URL.
const BatchPath = "peerreplication/batch/"

// Instance is one replicated mutation.
type Instance struct {
	AppName            string             `json:"appName"`
	ID                 string             `json:"id"`
	LastDirtyTimestamp int64              `json:"lastDirtyTimestamp,omitempty"`
	Status             registry.Status    `json:"status,omitempty"`
	InstanceInfo       *registry.Instance `json:"instanceInfo,omitempty"`
	Action             registry.Action    `json:"action"`
}

// Batch is the body of a batch request.
type Batch struct {
	ReplicationList []Instance `json:"replicationList"`
}

// InstanceResponse is the outcome of one batch item.
type InstanceResponse struct {
	StatusCode     int                `json:"statusCode"`
	ResponseEntity *registry.Instance `json:"responseEntity,omitempty"`
}

// BatchResponse carries one InstanceResponse per batch item, in order.
type BatchResponse struct {
	ResponseList []InstanceResponse `json:"responseList"`
}

// NewInstance builds the batch item for action on inst.
func NewInstance(action registry.Action, inst registry.Instance) Instance {
	item := Instance{
		AppName:            registry.NormalizeApp(inst.App),
		ID:                 inst.ID,
		LastDirtyTimestamp: inst.LastUpdated,
		Status:             inst.Status,
		Action:             action,
	}
	if action == registry.ActionRegister {
		info := inst
		item.InstanceInfo = &info
	}
	return item
}

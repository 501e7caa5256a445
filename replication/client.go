package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/httpclient"
	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/observability"
	"github.com/kbukum/peerkit/peers"
	"github.com/kbukum/peerkit/registry"
	"github.com/kbukum/peerkit/resilience"
)

// Replication results recorded on replication.batches.
const (
	resultSuccess  = "success"
	resultNotFound = "not_found"
	resultFailed   = "failed"
)

// Client sends replication batches to one peer.
type Client struct {
	peerURL  string
	http     *httpclient.Client
	breakers *resilience.BreakerSet
	metrics  *observability.Metrics
	log      *logger.Logger
}

var _ peers.ReplicationClient = (*Client)(nil)

// NewClient creates a client for peerURL. breakers and metrics may be nil.
// No connection is made.
func NewClient(peerURL string, cfg Config, breakers *resilience.BreakerSet, metrics *observability.Metrics, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	retry := cfg.Retry
	if retry.RetryIf == nil {
		retry.RetryIf = httpclient.IsRetryable
	}
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          peerURL,
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.Timeout,
	})
	hcfg := httpclient.Config{
		BaseURL:  peerURL,
		Timeout:  cfg.Timeout,
		Headers:  map[string]string{HeaderReplication: "true"},
		Retry:    &retry,
		Bulkhead: bulkhead,
	}
	if breakers != nil {
		hcfg.CircuitBreaker = breakers.Get(peerURL)
	}
	hc, err := httpclient.New(hcfg)
	if err != nil {
		return nil, fmt.Errorf("replication client for %s: %w", peerURL, err)
	}
	return &Client{
		peerURL:  peerURL,
		http:     hc,
		breakers: breakers,
		metrics:  metrics,
		log:      log.WithComponent("replication").WithFields(logger.Fields(logger.FieldPeerURL, peerURL)),
	}, nil
}

// NewClientFactory returns a peers.ClientFactory building Clients that share
// one circuit breaker set.
func NewClientFactory(cfg Config, metrics *observability.Metrics, log *logger.Logger) peers.ClientFactory {
	cfg.ApplyDefaults()
	breakers := resilience.NewBreakerSet(cfg.CircuitBreaker)
	return func(peerURL string) (peers.ReplicationClient, error) {
		return NewClient(peerURL, cfg, breakers, metrics, log)
	}
}

func (c *Client) Register(ctx context.Context, inst registry.Instance) error {
	return c.send(ctx, NewInstance(registry.ActionRegister, inst))
}

func (c *Client) Cancel(ctx context.Context, app, id string) error {
	return c.send(ctx, NewInstance(registry.ActionCancel, registry.Instance{App: app, ID: id}))
}

func (c *Client) Heartbeat(ctx context.Context, inst registry.Instance) error {
	return c.send(ctx, NewInstance(registry.ActionHeartbeat, inst))
}

func (c *Client) StatusUpdate(ctx context.Context, app, id string, status registry.Status) error {
	return c.send(ctx, NewInstance(registry.ActionStatusUpdate, registry.Instance{App: app, ID: id, Status: status}))
}

// Close drops idle connections and forgets the peer's circuit breaker.
func (c *Client) Close() error {
	if c.breakers != nil {
		c.breakers.Remove(c.peerURL)
	}
	return c.http.Close()
}

// send posts a single-item batch. A 404 for the item is a NOT_FOUND error so
// callers can register the instance again; other failures are
// REPLICATION_FAILED.
func (c *Client) send(ctx context.Context, item Instance) (err error) {
	batchID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, observability.SpanReplicationBatch)
	span.SetAttributes(
		attribute.String(observability.AttrPeerURL, c.peerURL),
		attribute.String("replication.action", string(item.Action)),
		attribute.String("replication.batch_id", batchID),
	)
	start := time.Now()
	defer func() {
		observability.EndSpan(span, err)
		c.record(ctx, err, time.Since(start))
	}()

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    BatchPath,
		Headers: map[string]string{"X-Batch-Id": batchID},
		Body:    Batch{ReplicationList: []Instance{item}},
	})
	if err != nil {
		if httpclient.IsNotFound(err) {
			return errors.NotFound("instance", item.ID)
		}
		return errors.ReplicationFailed(c.peerURL, err)
	}

	var out BatchResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return errors.ReplicationFailed(c.peerURL, fmt.Errorf("decode batch response: %w", err))
	}
	if len(out.ResponseList) == 0 {
		return errors.ReplicationFailed(c.peerURL, fmt.Errorf("empty batch response"))
	}
	switch code := out.ResponseList[0].StatusCode; {
	case code == http.StatusNotFound:
		return errors.NotFound("instance", item.ID)
	case code < 200 || code >= 300:
		return errors.ReplicationFailed(c.peerURL, fmt.Errorf("%s %s/%s: HTTP %d", item.Action, item.AppName, item.ID, code))
	}
	c.log.Debug("replicated", logger.Fields("action", string(item.Action), "app", item.AppName, "id", item.ID))
	return nil
}

func (c *Client) record(ctx context.Context, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	result := resultSuccess
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		result = resultNotFound
	case err != nil:
		result = resultFailed
	}
	c.metrics.RecordReplication(ctx, c.peerURL, result, d)
}

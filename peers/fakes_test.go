package peers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/registry"
)

// fakeConfig is a ClientConfig backed by plain fields.
type fakeConfig struct {
	dns       bool
	region    string
	regionErr error
	zones     map[string][]string
	urls      map[string][]string
	urlsErr   error
	prefer    bool
	zone      string
	hostname  string
	dnsName   string
	dnsPort   string
	dnsCtx    string
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		region: "us-east-1",
		zones:  map[string][]string{},
		urls:   map[string][]string{},
		prefer: true,
	}
}

func (c *fakeConfig) UseDNSForServiceURLs() bool { return c.dns }
func (c *fakeConfig) Region() (string, error)    { return c.region, c.regionErr }
func (c *fakeConfig) AvailabilityZones(region string) ([]string, error) {
	if z, ok := c.zones[region]; ok {
		return z, nil
	}
	return []string{"defaultZone"}, nil
}
func (c *fakeConfig) ServiceURLs(zone string) ([]string, error) {
	if c.urlsErr != nil {
		return nil, c.urlsErr
	}
	return c.urls[zone], nil
}
func (c *fakeConfig) PreferSameZone() (bool, error) { return c.prefer, nil }
func (c *fakeConfig) InstanceZone() string          { return c.zone }
func (c *fakeConfig) InstanceHostname() string      { return c.hostname }
func (c *fakeConfig) DNSName() string               { return c.dnsName }
func (c *fakeConfig) DNSPort() string               { return c.dnsPort }
func (c *fakeConfig) DNSContext() string            { return c.dnsCtx }

// fakeClient records calls and counts closes.
type fakeClient struct {
	url      string
	mu       sync.Mutex
	closed   int
	closeErr error
	calls    []string
	hbErr    error
}

func (c *fakeClient) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeClient) Register(ctx context.Context, inst registry.Instance) error {
	c.record("register:" + inst.ID)
	return nil
}
func (c *fakeClient) Cancel(ctx context.Context, app, id string) error {
	c.record("cancel:" + id)
	return nil
}
func (c *fakeClient) Heartbeat(ctx context.Context, inst registry.Instance) error {
	c.record("heartbeat:" + inst.ID)
	return c.hbErr
}
func (c *fakeClient) StatusUpdate(ctx context.Context, app, id string, status registry.Status) error {
	c.record("status:" + id + ":" + string(status))
	return nil
}
func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return c.closeErr
}

func (c *fakeClient) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeClients is a ClientFactory that remembers every client it built and
// fails for the URLs in fail.
type fakeClients struct {
	mu      sync.Mutex
	built   []*fakeClient
	fail    map[string]bool
	closeFn func(url string) error
}

func newFakeClients() *fakeClients {
	return &fakeClients{fail: map[string]bool{}}
}

func (f *fakeClients) factory(peerURL string) (ReplicationClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[peerURL] {
		return nil, fmt.Errorf("transport misconfigured for %s", peerURL)
	}
	c := &fakeClient{url: peerURL}
	if f.closeFn != nil {
		c.closeErr = f.closeFn(peerURL)
	}
	f.built = append(f.built, c)
	return c, nil
}

func (f *fakeClients) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.built)
}

func newTestSet(clients *fakeClients) *Set {
	return NewSet(NewDefaultNodeFactory(clients.factory, registry.NewMemory(logger.Nop()), logger.Nop()), logger.Nop())
}

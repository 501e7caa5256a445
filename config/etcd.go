package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kbukum/peerkit/component"
	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/validation"
)

// EtcdConfig configures the etcd property source.
type EtcdConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoints   []string      `yaml:"endpoints" mapstructure:"endpoints" validate:"required_if=Enabled true,dive,required"`
	Prefix      string        `yaml:"prefix" mapstructure:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`
}

// ApplyDefaults sets the prefix and dial timeout when unset.
func (c *EtcdConfig) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "/peerkit/"
	}
	if !strings.HasSuffix(c.Prefix, "/") {
		c.Prefix += "/"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// Validate checks the etcd configuration when enabled.
func (c *EtcdConfig) Validate() error {
	return validation.Validate(c)
}

// etcdClient is the subset of *clientv3.Client the source uses.
type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

// EtcdSource mirrors every key under a prefix into the Environment.
// The key <prefix>eureka/client/region becomes eureka.client.region.
type EtcdSource struct {
	cfg    EtcdConfig
	env    *Environment
	log    *logger.Logger
	client etcdClient

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

var _ component.Component = (*EtcdSource)(nil)

// NewEtcdSource creates a source feeding env. The etcd client is dialed on Start.
func NewEtcdSource(cfg EtcdConfig, env *Environment, log *logger.Logger) *EtcdSource {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &EtcdSource{cfg: cfg, env: env, log: log.WithComponent("etcd-source")}
}

func (s *EtcdSource) Name() string { return "etcd-source" }

// Start loads the current prefix contents and begins watching it.
func (s *EtcdSource) Start(ctx context.Context) error {
	if s.client == nil {
		c, err := clientv3.New(clientv3.Config{
			Endpoints:   s.cfg.Endpoints,
			DialTimeout: s.cfg.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("etcd connect: %w", err)
		}
		s.client = c
	}

	if err := s.load(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.watch(watchCtx)
	s.log.Info("watching etcd prefix", logger.Fields("prefix", s.cfg.Prefix, "endpoints", s.cfg.Endpoints))
	return nil
}

// watch re-reads the whole prefix on every watch response.
func (s *EtcdSource) watch(ctx context.Context) {
	defer close(s.done)
	for resp := range s.client.Watch(ctx, s.cfg.Prefix, clientv3.WithPrefix()) {
		if err := resp.Err(); err != nil {
			s.setErr(err)
			s.log.Warn("etcd watch error", logger.Fields(logger.FieldError, err.Error()))
			continue
		}
		if err := s.load(ctx); err != nil {
			s.log.Error("applying etcd change failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
}

func (s *EtcdSource) load(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.cfg.Prefix, clientv3.WithPrefix())
	if err != nil {
		s.setErr(err)
		return fmt.Errorf("etcd get %s: %w", s.cfg.Prefix, err)
	}
	values := make(map[string]interface{}, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		key := propertyKey(s.cfg.Prefix, string(kv.Key))
		if key == "" {
			continue
		}
		values[key] = string(kv.Value)
	}
	s.setErr(nil)

	_, err = s.env.Merge(ctx, SourceEtcd, values)
	return err
}

func propertyKey(prefix, key string) string {
	rel := strings.Trim(strings.TrimPrefix(key, prefix), "/")
	return strings.ReplaceAll(rel, "/", ".")
}

func (s *EtcdSource) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Stop cancels the watch and closes the client.
func (s *EtcdSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *EtcdSource) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return component.Health{Name: s.Name(), Status: component.StatusDegraded, Message: s.lastErr.Error()}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *EtcdSource) Describe() component.Description {
	return component.Description{
		Name:    "etcd",
		Type:    "config-source",
		Details: fmt.Sprintf("%s %s", strings.Join(s.cfg.Endpoints, ","), s.cfg.Prefix),
	}
}

// Command peer-registry runs a registry server that keeps its set of peer
// nodes in step with live configuration and replicates registry changes to
// them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/peerkit/api"
	"github.com/kbukum/peerkit/bootstrap"
	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/observability"
	"github.com/kbukum/peerkit/peers"
	"github.com/kbukum/peerkit/registry"
	"github.com/kbukum/peerkit/replication"
	"github.com/kbukum/peerkit/server"
	"github.com/kbukum/peerkit/version"
)

const serviceName = "peer-registry"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg AppConfig
	file, err := config.LoadConfig(serviceName, &cfg)
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdownTelemetry))
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	env := config.NewEnvironment(log)
	if file != "" {
		if _, err := env.LoadFile(ctx, file); err != nil {
			return err
		}
	}
	if cfg.Etcd.Enabled {
		if err := app.RegisterComponent(config.NewEtcdSource(cfg.Etcd, env, log)); err != nil {
			return err
		}
	}
	props := config.NewClientProperties(env)

	reg := registry.NewMemory(log)
	clients := replication.NewClientFactory(cfg.Replication, metrics, log)
	set := peers.NewSet(peers.NewDefaultNodeFactory(clients, reg, log), log)
	reg.SetReplicator(replication.NewDispatcher(set, log))

	watcher := peers.NewChangeWatcher(props, peers.NewConfigResolver(props, log), set, log)
	provider, err := peers.NewProvider(cfg.Peering, watcher, env, log)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(provider); err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	api.NewHandler(reg, set, env, log).Routes(srv.GinEngine(), cfg.Server.ContextPath, cfg.Server.ReplicationRateLimit)
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	if file != "" {
		app.OnStart(env.WatchFile)
	}
	app.OnReady(func(context.Context) error {
		retries, err := props.RegistrySyncRetries()
		if err != nil {
			return err
		}
		log.Info("peer topology ready", logger.Fields(
			"peers", set.Len(),
			"registry_sync_retries", retries,
		))
		return nil
	})

	return app.Run(ctx)
}

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/logger"
)

func newTestEnv() *Environment { return NewEnvironment(logger.Nop()) }

func TestKeySet(t *testing.T) {
	ks := NewKeySet("Eureka.Client.Region", "eureka.client.service-url.defaultZone")

	if !ks.Has("eureka.client.region") {
		t.Error("expected case-insensitive Has")
	}
	if !ks.HasPrefix("eureka.client.service-url.") {
		t.Error("expected prefix match")
	}
	if ks.HasPrefix("eureka.client.availability-zones.") {
		t.Error("unexpected prefix match")
	}
	keys := ks.Keys()
	if len(keys) != 2 || keys[0] != "eureka.client.region" {
		t.Errorf("expected sorted lowercased keys, got %v", keys)
	}
	if NewKeySet().Len() != 0 {
		t.Error("expected empty set")
	}
}

func TestEnvironmentMergeReportsChangedKeys(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	keys, err := env.Merge(ctx, SourceFile, map[string]interface{}{
		"eureka": map[string]interface{}{
			"client": map[string]interface{}{
				"region":      "eu-west-1",
				"service-url": map[string]interface{}{"defaultZone": "http://a:8761/eureka/"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if keys.Len() != 2 || !keys.Has("eureka.client.service-url.defaultzone") {
		t.Fatalf("unexpected keys on first merge: %v", keys.Keys())
	}

	tests := []struct {
		name   string
		values map[string]interface{}
		want   []string
	}{
		{
			name:   "identical values change nothing",
			values: map[string]interface{}{"eureka.client.region": "eu-west-1", "eureka.client.service-url.defaultZone": "http://a:8761/eureka/"},
			want:   nil,
		},
		{
			name:   "modified value",
			values: map[string]interface{}{"eureka.client.region": "eu-west-2", "eureka.client.service-url.defaultZone": "http://a:8761/eureka/"},
			want:   []string{"eureka.client.region"},
		},
		{
			name:   "removed and added",
			values: map[string]interface{}{"eureka.client.region": "eu-west-2", "eureka.client.service-url.zone1": "http://b/"},
			want:   []string{"eureka.client.service-url.defaultzone", "eureka.client.service-url.zone1"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			keys, err := env.Merge(ctx, SourceFile, tc.values)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			got := keys.Keys()
			if len(got) != len(tc.want) {
				t.Fatalf("expected keys %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("expected keys %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestEnvironmentLayersOverride(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, _ = env.Merge(ctx, SourceFile, map[string]interface{}{"eureka.client.region": "us-east-1"})
	keys, _ := env.Merge(ctx, SourceEtcd, map[string]interface{}{"eureka.client.region": "eu-west-1"})
	if !keys.Has(KeyRegion) {
		t.Fatal("expected etcd layer to change the region")
	}
	if env.GetString(KeyRegion) != "eu-west-1" {
		t.Errorf("expected later layer to win, got %q", env.GetString(KeyRegion))
	}

	// A file change underneath the etcd value is not visible.
	keys, _ = env.Merge(ctx, SourceFile, map[string]interface{}{"eureka.client.region": "ap-south-1"})
	if keys.Len() != 0 {
		t.Errorf("expected shadowed change to report no keys, got %v", keys.Keys())
	}

	keys, _ = env.RemoveSource(ctx, SourceEtcd)
	if !keys.Has(KeyRegion) || env.GetString(KeyRegion) != "ap-south-1" {
		t.Errorf("expected file value after removing etcd layer, got %q (%v)", env.GetString(KeyRegion), keys.Keys())
	}
}

func TestEnvironmentListeners(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	var events []ChangeEvent
	remove := env.AddListener(func(ctx context.Context, ev ChangeEvent) error {
		events = append(events, ev)
		return nil
	})
	env.AddListener(func(ctx context.Context, ev ChangeEvent) error {
		return fmt.Errorf("listener two failed")
	})
	env.AddListener(func(ctx context.Context, ev ChangeEvent) error {
		return errors.PeerConstruction("http://x/", fmt.Errorf("boom"))
	})

	_, err := env.Merge(ctx, SourceRefresh, map[string]interface{}{"a": "1"})
	if err == nil || !strings.Contains(err.Error(), "listener two failed") {
		t.Fatalf("expected combined listener error, got %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodePeerConstruction) {
		t.Errorf("expected combined error to keep the AppError, got %v", err)
	}
	if len(events) != 1 || events[0].Source != SourceRefresh || !events[0].Keys.Has("a") {
		t.Fatalf("unexpected events: %+v", events)
	}
	if env.GetString("a") != "1" {
		t.Error("values stay applied when a listener fails")
	}

	remove()
	_, _ = env.Merge(ctx, SourceRefresh, map[string]interface{}{"a": "2"})
	if len(events) != 1 {
		t.Errorf("expected removed listener to not be called, got %d events", len(events))
	}
}

func TestEnvironmentNoChangeSkipsListeners(t *testing.T) {
	env := newTestEnv()
	calls := 0
	env.AddListener(func(ctx context.Context, ev ChangeEvent) error {
		calls++
		return nil
	})
	values := map[string]interface{}{"x": "1"}
	_, _ = env.Merge(context.Background(), SourceFile, values)
	_, _ = env.Merge(context.Background(), SourceFile, values)
	if calls != 1 {
		t.Errorf("expected one notification, got %d", calls)
	}
}

func TestEnvironmentTypedGetters(t *testing.T) {
	env := newTestEnv()
	_, _ = env.Merge(context.Background(), SourceFile, map[string]interface{}{
		"flag":      "true",
		"bad-flag":  "sometimes",
		"list":      " a, b ,,c ",
		"yaml-list": []interface{}{"x", "y,z"},
	})

	if v, err := env.GetBool("flag", false); err != nil || !v {
		t.Errorf("GetBool(flag) = %v, %v", v, err)
	}
	if v, err := env.GetBool("missing", true); err != nil || !v {
		t.Errorf("expected default for missing key, got %v, %v", v, err)
	}
	if _, err := env.GetBool("bad-flag", false); !errors.HasCode(err, errors.ErrCodeConfigRead) {
		t.Errorf("expected CONFIG_READ_ERROR, got %v", err)
	}

	list, ok, err := env.GetStringSliceE("LIST")
	if err != nil || !ok || strings.Join(list, "|") != "a|b|c" {
		t.Errorf("unexpected list: %v %v %v", list, ok, err)
	}
	list, _, _ = env.GetStringSliceE("yaml-list")
	if strings.Join(list, "|") != "x|y|z" {
		t.Errorf("unexpected yaml list: %v", list)
	}
	if _, ok, _ := env.GetStringSliceE("missing"); ok {
		t.Error("expected missing list to report !ok")
	}
	if len(env.Keys()) != 4 {
		t.Errorf("expected 4 keys, got %v", env.Keys())
	}
}

func TestEnvironmentLoadFileAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peers.yml")
	write := func(body string) {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("eureka:\n  client:\n    region: us-east-1\n")

	env := newTestEnv()
	ctx := context.Background()

	if keys, err := env.Reload(ctx); err != nil || keys.Len() != 0 {
		t.Fatalf("Reload without a file should be a no-op, got %v %v", keys, err)
	}
	if _, err := env.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if env.GetString(KeyRegion) != "us-east-1" {
		t.Fatalf("expected region from file, got %q", env.GetString(KeyRegion))
	}

	write("eureka:\n  client:\n    region: eu-west-1\n    availability-zones:\n      eu-west-1: a,b\n")
	keys, err := env.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !keys.Has(KeyRegion) || !keys.Has("eureka.client.availability-zones.eu-west-1") {
		t.Errorf("unexpected reload keys: %v", keys.Keys())
	}
}

func TestEnvironmentLoadFileMissing(t *testing.T) {
	env := newTestEnv()
	_, err := env.LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.HasCode(err, errors.ErrCodeConfigRead) {
		t.Errorf("expected CONFIG_READ_ERROR, got %v", err)
	}
	if err := env.WatchFile(context.Background()); err == nil {
		t.Error("expected WatchFile to fail without a loaded file")
	}
}

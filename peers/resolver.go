package peers

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ClientConfig is the client configuration the resolver and watcher read.
// Implementations read current values on every call.
type ClientConfig interface {
	UseDNSForServiceURLs() bool
	Region() (string, error)
	AvailabilityZones(region string) ([]string, error)
	ServiceURLs(zone string) ([]string, error)
	PreferSameZone() (bool, error)
	InstanceZone() string
	InstanceHostname() string
	DNSName() string
	DNSPort() string
	DNSContext() string
}

// URLResolver computes the desired peer URLs.
type URLResolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// TXTLookup resolves the TXT records of a DNS name.
type TXTLookup func(ctx context.Context, name string) ([]string, error)

// ConfigResolver resolves peer URLs from ClientConfig, either from the
// per-zone service URLs or, in DNS mode, from TXT records. The local
// instance's own URL is excluded and duplicates are dropped.
type ConfigResolver struct {
	cfg       ClientConfig
	lookupTXT TXTLookup
	log       *logger.Logger
}

var _ URLResolver = (*ConfigResolver)(nil)

// NewConfigResolver creates a resolver using the system DNS resolver.
func NewConfigResolver(cfg ClientConfig, log *logger.Logger) *ConfigResolver {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &ConfigResolver{cfg: cfg, lookupTXT: net.DefaultResolver.LookupTXT, log: log.WithComponent("peers")}
}

// WithTXTLookup replaces the DNS TXT lookup.
func (r *ConfigResolver) WithTXTLookup(fn TXTLookup) *ConfigResolver {
	r.lookupTXT = fn
	return r
}

// Resolve returns the desired peer URLs. Configuration errors are returned
// without a partial result.
func (r *ConfigResolver) Resolve(ctx context.Context) (urls []string, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanPeersResolve)
	defer func() { observability.EndSpan(span, err) }()

	if r.cfg.UseDNSForServiceURLs() {
		urls, err = r.fromDNS(ctx)
	} else {
		urls, err = r.fromConfig()
	}
	if err != nil {
		return nil, err
	}

	urls = dedupe(r.excludeSelf(urls))
	span.SetAttributes(attribute.Int(observability.AttrPeerCount, len(urls)))
	return urls, nil
}

// fromConfig walks the zones of the region starting at the local zone
// offset and wrapping around, collecting each zone's service URLs.
func (r *ConfigResolver) fromConfig() ([]string, error) {
	region, err := r.cfg.Region()
	if err != nil {
		return nil, err
	}
	zones, err := r.cfg.AvailabilityZones(region)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}
	offset, err := r.zoneOffset(zones)
	if err != nil {
		return nil, err
	}

	var urls []string
	for i := 0; i < len(zones); i++ {
		zone := zones[(offset+i)%len(zones)]
		zoneURLs, err := r.cfg.ServiceURLs(zone)
		if err != nil {
			return nil, err
		}
		urls = append(urls, zoneURLs...)
	}
	return urls, nil
}

// zoneOffset returns the index of the first zone whose match against the
// instance zone equals the prefer-same-zone flag: the instance's own zone
// when preferring it, otherwise the first other zone. Without a match, 0.
func (r *ConfigResolver) zoneOffset(zones []string) (int, error) {
	prefer, err := r.cfg.PreferSameZone()
	if err != nil {
		return 0, err
	}
	myZone := strings.TrimSpace(r.cfg.InstanceZone())
	if myZone == "" {
		myZone = zones[0]
	}
	for i, z := range zones {
		if strings.EqualFold(z, myZone) == prefer {
			return i, nil
		}
	}
	r.log.Warn("instance zone not found in availability zones, using the first", logger.Fields(
		logger.FieldZone, myZone, "zones", zones))
	return 0, nil
}

// fromDNS reads the zone list from txt.<region>.<dns-name> and each zone's
// hosts from txt.<zone>, building http://<host>:<port>/<context>/ URLs. The
// local zone comes first when preferred.
func (r *ConfigResolver) fromDNS(ctx context.Context) ([]string, error) {
	region, err := r.cfg.Region()
	if err != nil {
		return nil, err
	}
	dnsName := r.cfg.DNSName()
	if dnsName == "" {
		return nil, fmt.Errorf("dns resolution enabled but no eureka server dns name configured")
	}
	prefer, err := r.cfg.PreferSameZone()
	if err != nil {
		return nil, err
	}

	zones, err := r.txtRecords(ctx, "txt."+region+"."+dnsName)
	if err != nil {
		return nil, err
	}
	if myZone := r.cfg.InstanceZone(); prefer && myZone != "" {
		zones = moveZoneFirst(zones, myZone)
	}

	var urls []string
	for _, zone := range zones {
		hosts, err := r.txtRecords(ctx, "txt."+zone)
		if err != nil {
			return nil, err
		}
		for _, host := range hosts {
			urls = append(urls, dnsURL(host, r.cfg.DNSPort(), r.cfg.DNSContext()))
		}
	}
	return urls, nil
}

func (r *ConfigResolver) txtRecords(ctx context.Context, name string) ([]string, error) {
	records, err := r.lookupTXT(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup TXT %s: %w", name, err)
	}
	var out []string
	for _, rec := range records {
		out = append(out, strings.Fields(rec)...)
	}
	return out, nil
}

// moveZoneFirst moves the zone named myZone, or the zone DNS name starting
// with "myZone.", to the front.
func moveZoneFirst(zones []string, myZone string) []string {
	for i, z := range zones {
		if strings.EqualFold(z, myZone) || strings.HasPrefix(strings.ToLower(z), strings.ToLower(myZone)+".") {
			out := make([]string, 0, len(zones))
			out = append(out, z)
			out = append(out, zones[:i]...)
			return append(out, zones[i+1:]...)
		}
	}
	return zones
}

func dnsURL(host, port, path string) string {
	var b strings.Builder
	b.WriteString("http://")
	b.WriteString(host)
	if port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	b.WriteString("/")
	if c := strings.Trim(path, "/"); c != "" {
		b.WriteString(c)
		b.WriteString("/")
	}
	return b.String()
}

// excludeSelf drops URLs whose host is the local instance hostname.
func (r *ConfigResolver) excludeSelf(urls []string) []string {
	self := r.cfg.InstanceHostname()
	if self == "" {
		return urls
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if host, err := hostFromURL(u); err == nil && strings.EqualFold(host, self) {
			r.log.Debug("excluding own url from peers", logger.Fields(logger.FieldPeerURL, u))
			continue
		}
		out = append(out, u)
	}
	return out
}

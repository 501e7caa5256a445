package config

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/peerkit/errors"
)

// Client property keys. Keys are case-insensitive.
const (
	KeyRegion               = "eureka.client.region"
	PrefixServiceURL        = "eureka.client.service-url."
	PrefixAvailabilityZones = "eureka.client.availability-zones."
	KeyUseDNS               = "eureka.client.use-dns-for-fetching-service-urls"
	KeyPreferSameZone       = "eureka.client.prefer-same-zone-eureka"
	KeyRegisterWithEureka   = "eureka.client.register-with-eureka"
	KeyDNSName              = "eureka.client.eureka-server-dns-name"
	KeyDNSPort              = "eureka.client.eureka-server-port"
	KeyDNSContext           = "eureka.client.eureka-server-u-r-l-context"
	KeyInstanceHostname     = "eureka.instance.hostname"
	KeyInstanceZone         = "eureka.instance.metadata-map.zone"
	KeyRegistrySyncRetries  = "eureka.server.registry-sync-retries"
)

const (
	DefaultRegion = "us-east-1"
	DefaultZone   = "defaultZone"

	defaultRegistrySyncRetries = 5
)

// ClientProperties reads the eureka client settings from an Environment.
// Every call reads the current values.
type ClientProperties struct {
	env *Environment
}

// NewClientProperties creates a ClientProperties view over env.
func NewClientProperties(env *Environment) *ClientProperties {
	return &ClientProperties{env: env}
}

// UseDNSForServiceURLs reports whether peers are discovered through DNS.
// An unreadable flag counts as false.
func (c *ClientProperties) UseDNSForServiceURLs() bool {
	v, err := c.env.GetBool(KeyUseDNS, false)
	return err == nil && v
}

// Region returns the configured region, defaulting to us-east-1.
func (c *ClientProperties) Region() (string, error) {
	v, ok := c.env.Get(KeyRegion)
	if !ok {
		return DefaultRegion, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", errors.ConfigRead(KeyRegion, err)
	}
	if s = strings.TrimSpace(s); s == "" {
		return DefaultRegion, nil
	}
	return s, nil
}

// AvailabilityZones returns the zones of region, defaulting to [defaultZone].
func (c *ClientProperties) AvailabilityZones(region string) ([]string, error) {
	zones, _, err := c.env.GetStringSliceE(PrefixAvailabilityZones + region)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return []string{DefaultZone}, nil
	}
	return zones, nil
}

// ServiceURLs returns the peer URLs configured for zone, falling back to
// the defaultZone list. Every URL ends with a slash.
func (c *ClientProperties) ServiceURLs(zone string) ([]string, error) {
	urls, _, err := c.env.GetStringSliceE(PrefixServiceURL + zone)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		if urls, _, err = c.env.GetStringSliceE(PrefixServiceURL + DefaultZone); err != nil {
			return nil, err
		}
	}
	for i, u := range urls {
		if !strings.HasSuffix(u, "/") {
			urls[i] = u + "/"
		}
	}
	return urls, nil
}

// PreferSameZone defaults to true.
func (c *ClientProperties) PreferSameZone() (bool, error) {
	return c.env.GetBool(KeyPreferSameZone, true)
}

// InstanceZone returns the zone from the instance metadata, or "".
func (c *ClientProperties) InstanceZone() string {
	return c.env.GetString(KeyInstanceZone)
}

// InstanceHostname returns the local instance hostname, or "".
func (c *ClientProperties) InstanceHostname() string {
	return c.env.GetString(KeyInstanceHostname)
}

// DNSName returns the DNS name used in DNS resolution mode.
func (c *ClientProperties) DNSName() string {
	return c.env.GetString(KeyDNSName)
}

// DNSPort returns the peer port used in DNS resolution mode.
func (c *ClientProperties) DNSPort() string {
	return c.env.GetString(KeyDNSPort)
}

// DNSContext returns the URL context path used in DNS resolution mode.
func (c *ClientProperties) DNSContext() string {
	return c.env.GetString(KeyDNSContext)
}

// RegisterWithEureka reports whether the server registers itself with
// its peers. Defaults to true.
func (c *ClientProperties) RegisterWithEureka() (bool, error) {
	return c.env.GetBool(KeyRegisterWithEureka, true)
}

// RegistrySyncRetries returns the number of startup sync attempts against
// peers. It is 0 unless the server registers with its peers, in which case
// it defaults to 5.
func (c *ClientProperties) RegistrySyncRetries() (int, error) {
	register, err := c.RegisterWithEureka()
	if err != nil {
		return 0, err
	}
	v, ok := c.env.Get(KeyRegistrySyncRetries)
	if !ok {
		if register {
			return defaultRegistrySyncRetries, nil
		}
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, errors.ConfigRead(KeyRegistrySyncRetries, err)
	}
	return n, nil
}

// Package config loads the ambient runtime knobs the core needs to be
// driven at all: HTTP timeouts, the GENA callback bind address, and
// subscription defaults. Discovery, transcoding and any other
// out-of-scope collaborator are configured by the caller, not here.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the ambient settings shared by the client and device
// halves of the stack.
type Config struct {
	// HTTPTimeout bounds every outbound SOAP/GENA request.
	HTTPTimeout time.Duration
	// CallbackHost/CallbackPort is where the GENA event server binds to
	// receive NOTIFY requests. Port 0 means "pick any free port".
	CallbackHost string
	CallbackPort int
	// SubscriptionTimeoutSec is the timeout this client requests on
	// SUBSCRIBE; publishers may grant a shorter one.
	SubscriptionTimeoutSec int
	// RenewalFraction is the fraction of the negotiated timeout at which
	// a client-side subscription renews itself (spec.md §4.5: 75%).
	RenewalFraction float64
	// LastChangeMinInterval bounds how often a device emits a LastChange
	// aggregate (spec.md §4.6).
	LastChangeMinInterval time.Duration
	// RootDeviceHost/RootDevicePort is where the Root Device's HTTP
	// server binds.
	RootDeviceHost string
	RootDevicePort int
	FriendlyName   string
}

// Load reads configuration from environment variables with defaults
// matching the teacher's envString/envInt/envBool helper pattern.
func Load() (Config, error) {
	cfg := Config{
		HTTPTimeout:            time.Duration(envInt("UPNP_HTTP_TIMEOUT_MS", 5000)) * time.Millisecond,
		CallbackHost:           envString("UPNP_CALLBACK_HOST", "0.0.0.0"),
		CallbackPort:           envInt("UPNP_CALLBACK_PORT", 0),
		SubscriptionTimeoutSec: envInt("UPNP_SUBSCRIPTION_TIMEOUT_SEC", 1800),
		RenewalFraction:        0.75,
		LastChangeMinInterval:  time.Duration(envInt("UPNP_LASTCHANGE_MIN_INTERVAL_MS", 200)) * time.Millisecond,
		RootDeviceHost:         envString("UPNP_ROOT_DEVICE_HOST", "0.0.0.0"),
		RootDevicePort:         envInt("UPNP_ROOT_DEVICE_PORT", 0),
		FriendlyName:           envString("UPNP_FRIENDLY_NAME", "Go UPnP AV Device"),
	}
	return cfg, nil
}

// LoadFile reads a YAML overlay on top of Load()'s environment-derived
// defaults. A missing file is not an error; present fields override.
func LoadFile(path string) (Config, error) {
	cfg, err := Load()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var overlay struct {
		HTTPTimeoutMS          *int     `yaml:"http_timeout_ms"`
		CallbackHost           *string  `yaml:"callback_host"`
		CallbackPort           *int     `yaml:"callback_port"`
		SubscriptionTimeoutSec *int     `yaml:"subscription_timeout_sec"`
		RenewalFraction        *float64 `yaml:"renewal_fraction"`
		LastChangeMinIntervalMS *int    `yaml:"lastchange_min_interval_ms"`
		RootDeviceHost         *string  `yaml:"root_device_host"`
		RootDevicePort         *int     `yaml:"root_device_port"`
		FriendlyName           *string  `yaml:"friendly_name"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, err
	}

	if overlay.HTTPTimeoutMS != nil {
		cfg.HTTPTimeout = time.Duration(*overlay.HTTPTimeoutMS) * time.Millisecond
	}
	if overlay.CallbackHost != nil {
		cfg.CallbackHost = *overlay.CallbackHost
	}
	if overlay.CallbackPort != nil {
		cfg.CallbackPort = *overlay.CallbackPort
	}
	if overlay.SubscriptionTimeoutSec != nil {
		cfg.SubscriptionTimeoutSec = *overlay.SubscriptionTimeoutSec
	}
	if overlay.RenewalFraction != nil {
		cfg.RenewalFraction = *overlay.RenewalFraction
	}
	if overlay.LastChangeMinIntervalMS != nil {
		cfg.LastChangeMinInterval = time.Duration(*overlay.LastChangeMinIntervalMS) * time.Millisecond
	}
	if overlay.RootDeviceHost != nil {
		cfg.RootDeviceHost = *overlay.RootDeviceHost
	}
	if overlay.RootDevicePort != nil {
		cfg.RootDevicePort = *overlay.RootDevicePort
	}
	if overlay.FriendlyName != nil {
		cfg.FriendlyName = *overlay.FriendlyName
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

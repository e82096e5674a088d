package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Connect policies applied when the hub cannot be reached at startup.
const (
	PolicyDegrade = "degrade"
	PolicyFail    = "fail"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

type Config struct {
	// Hub
	HomeyAddress   string
	HomeyToken     string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	OfflineMode    bool
	DemoMode       bool
	ConnectPolicy  string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	// Transports
	MCPTransport     string
	MCPSSEAddr       string
	HTTPAddr         string
	JWTPublicKeyPath string

	// Observability and events
	OTLPEndpoint    string
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTTopicPrefix string
}

// UseDemoData reports whether hub calls are replaced by fixture data.
func (c *Config) UseDemoData() bool {
	return c.OfflineMode || c.DemoMode
}

var defaults = map[string]any{
	"homey_local_address":         "",
	"homey_local_token":           "",
	"request_timeout":             "30",
	"cache_ttl":                   "300",
	"offline_mode":                false,
	"demo_mode":                   false,
	"connect_policy":              PolicyDegrade,
	"log_level":                   "info",
	"log_file":                    "homey_mcp_server.log",
	"log_max_size_mb":             10,
	"log_max_backups":             3,
	"mcp_transport":               TransportStdio,
	"mcp_sse_addr":                ":8098",
	"http_addr":                   "",
	"jwt_public_key_path":         "",
	"otel_exporter_otlp_endpoint": "",
	"mqtt_broker_url":             "",
	"mqtt_client_id":              "homey-mcp",
	"mqtt_topic_prefix":           "homey-mcp",
}

// Load reads configuration from the environment, a .env file in the working
// directory and the optional YAML file named by CONFIG_FILE. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := mergeFile(v, ".env", "env"); err != nil {
		return nil, err
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := mergeFile(v, path, "yaml"); err != nil {
			return nil, err
		}
	}

	return fromViper(v)
}

func mergeFile(v *viper.Viper, path, kind string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && kind == "env" {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType(kind)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	timeout, err := getSeconds(v, "request_timeout")
	if err != nil {
		return nil, err
	}
	ttl, err := getSeconds(v, "cache_ttl")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HomeyAddress:   strings.TrimSpace(v.GetString("homey_local_address")),
		HomeyToken:     strings.TrimSpace(v.GetString("homey_local_token")),
		RequestTimeout: timeout,
		CacheTTL:       ttl,
		OfflineMode:    v.GetBool("offline_mode"),
		DemoMode:       v.GetBool("demo_mode"),
		ConnectPolicy:  strings.ToLower(strings.TrimSpace(v.GetString("connect_policy"))),

		LogLevel:      strings.ToLower(v.GetString("log_level")),
		LogFile:       v.GetString("log_file"),
		LogMaxSizeMB:  v.GetInt("log_max_size_mb"),
		LogMaxBackups: v.GetInt("log_max_backups"),

		MCPTransport:     strings.ToLower(strings.TrimSpace(v.GetString("mcp_transport"))),
		MCPSSEAddr:       v.GetString("mcp_sse_addr"),
		HTTPAddr:         v.GetString("http_addr"),
		JWTPublicKeyPath: v.GetString("jwt_public_key_path"),

		OTLPEndpoint:    v.GetString("otel_exporter_otlp_endpoint"),
		MQTTBrokerURL:   v.GetString("mqtt_broker_url"),
		MQTTClientID:    v.GetString("mqtt_client_id"),
		MQTTTopicPrefix: strings.Trim(v.GetString("mqtt_topic_prefix"), "/"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations Load cannot express through defaults.
func (c *Config) Validate() error {
	switch c.ConnectPolicy {
	case PolicyDegrade, PolicyFail:
	default:
		return fmt.Errorf("invalid CONNECT_POLICY %q (want %s or %s)", c.ConnectPolicy, PolicyDegrade, PolicyFail)
	}
	switch c.MCPTransport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("invalid MCP_TRANSPORT %q (want %s or %s)", c.MCPTransport, TransportStdio, TransportSSE)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.ConnectPolicy == PolicyFail && c.HomeyAddress == "" && !c.UseDemoData() {
		return fmt.Errorf("HOMEY_LOCAL_ADDRESS is required when CONNECT_POLICY=%s", PolicyFail)
	}
	return nil
}

// getSeconds accepts a plain number of seconds or a Go duration string.
func getSeconds(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", strings.ToUpper(key))
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), raw, err)
	}
	return d, nil
}

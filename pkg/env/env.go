// Package env provides the common configuration of the rtt commands, from
// defaults, environment variables and command line flags, in that order.
package env

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robotalks/rtt.go/pkg/rtt"
)

// Config provides common options.
type Config struct {
	// MQTTURL enables the MQTT bridge,
	// e.g. mqtt://host:1883/rtt/board1/
	MQTTURL string
	// WSAddr enables the websocket server on this address, e.g. :8080.
	WSAddr string
	// CaptureDB enables capture into this SQLite database file.
	CaptureDB string
	// PollInterval is how often the probe drains up channels.
	PollInterval time.Duration
	// Mode is the mode of the print channel.
	Mode rtt.Mode
	// ClientID identifies this host to the broker.
	ClientID string
}

// Environment variables.
const (
	EnvMQTTURL      = "RTT_MQTT_URL"
	EnvWSAddr       = "RTT_WS_ADDR"
	EnvCaptureDB    = "RTT_CAPTURE_DB"
	EnvPollInterval = "RTT_POLL_INTERVAL"
	EnvMode         = "RTT_MODE"
	EnvClientID     = "RTT_CLIENT_ID"
)

var (
	defaultConfig = Config{
		PollInterval: 10 * time.Millisecond,
		Mode:         rtt.DefaultMode,
	}
	envErr error
)

func init() {
	envErr = defaultConfig.ApplyEnv(os.Getenv)
}

// ApplyEnv overrides c with the environment variables found by getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if val := getenv(EnvMQTTURL); val != "" {
		c.MQTTURL = val
	}
	if val := getenv(EnvWSAddr); val != "" {
		c.WSAddr = val
	}
	if val := getenv(EnvCaptureDB); val != "" {
		c.CaptureDB = val
	}
	if val := getenv(EnvClientID); val != "" {
		c.ClientID = val
	}
	if val := getenv(EnvPollInterval); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q", EnvPollInterval, val)
		}
		c.PollInterval = d
	}
	if val := getenv(EnvMode); val != "" {
		mode, err := rtt.ParseMode(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMode, err)
		}
		c.Mode = mode
	}
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.AddFlags(flag.CommandLine)
}

// AddFlags registers the options of c in fs.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL, enables the MQTT bridge.")
	fs.StringVar(&c.WSAddr, "ws", c.WSAddr, "Listen address of the websocket server.")
	fs.StringVar(&c.CaptureDB, "capture", c.CaptureDB, "SQLite database capturing up channel data.")
	fs.DurationVar(&c.PollInterval, "poll", c.PollInterval, "Probe poll interval.")
	fs.TextVar(&c.Mode, "mode", c.Mode, "Print channel mode: skip, trim or block.")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "MQTT client ID, derived from the machine ID if empty.")
}

// Err returns the error found in environment variables, if any.
func Err() error {
	return envErr
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the options.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if !c.Mode.IsValid() {
		return rtt.ErrInvalidMode
	}
	if c.MQTTURL != "" && !strings.Contains(c.MQTTURL, "://") {
		return fmt.Errorf("MQTT URL %q has no scheme", c.MQTTURL)
	}
	return nil
}

// MQTTClientID returns ClientID or one derived from the machine ID.
func (c *Config) MQTTClientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return DefaultClientID()
}

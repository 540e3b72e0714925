// Package config builds the immutable configuration of a watch run from
// positional arguments, flags and TIKTOKALERT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TIKTOKALERT_RELAY_URL.
const EnvPrefix = "TIKTOKALERT"

// Defaults.
const (
	DefaultNtfyServer = "https://ntfy.sh"
	DefaultRelayURL   = "ws://localhost:8080/ws"
	DefaultLogDir     = "."
	DefaultRetryDelay = 300 * time.Second
)

// Flag and viper keys.
const (
	KeyRelayURL   = "relay-url"
	KeyNtfyServer = "ntfy-server"
	KeyLogDir     = "log-dir"
	KeyRetryDelay = "retry-delay"
	KeyVerbose    = "verbose"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is built once at startup and never mutated.
type Config struct {
	// BroadcasterID is the @handle of the livestream to watch.
	BroadcasterID string
	// WatchedUserID is the participant whose comments and joins are pushed.
	WatchedUserID string
	// Topic is the ntfy topic notifications are posted to.
	Topic string

	RelayURL   string
	NtfyServer string
	LogDir     string
	RetryDelay time.Duration
	Verbose    bool
}

// RegisterFlags adds the optional flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyRelayURL, DefaultRelayURL, "WebSocket URL of the webcast relay")
	fs.String(KeyNtfyServer, DefaultNtfyServer, "ntfy server base URL")
	fs.String(KeyLogDir, DefaultLogDir, "directory for <unique_id>_log.txt")
	fs.Duration(KeyRetryDelay, DefaultRetryDelay, "wait between attempts while the broadcaster is offline")
}

// Bind returns a viper instance reading fs and TIKTOKALERT_* variables.
// Explicit flags win over environment variables, which win over defaults.
func Bind(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// Load builds a Config from the three positional values and v.
func Load(v *viper.Viper, uniqueID, userID, topicID string) (Config, error) {
	cfg := Config{
		BroadcasterID: strings.TrimPrefix(strings.TrimSpace(uniqueID), "@"),
		WatchedUserID: strings.TrimPrefix(strings.TrimSpace(userID), "@"),
		Topic:         strings.TrimSpace(topicID),
		RelayURL:      v.GetString(KeyRelayURL),
		NtfyServer:    strings.TrimRight(v.GetString(KeyNtfyServer), "/"),
		LogDir:        v.GetString(KeyLogDir),
		RetryDelay:    v.GetDuration(KeyRetryDelay),
		Verbose:       v.GetBool(KeyVerbose),
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and URL shapes.
func (c Config) Validate() error {
	switch {
	case c.BroadcasterID == "":
		return fmt.Errorf("%w: unique_id must not be empty", ErrInvalid)
	case c.WatchedUserID == "":
		return fmt.Errorf("%w: user_id must not be empty", ErrInvalid)
	case c.Topic == "":
		return fmt.Errorf("%w: topic_id must not be empty", ErrInvalid)
	case strings.Contains(c.Topic, "/"):
		return fmt.Errorf("%w: topic_id %q must not contain '/'", ErrInvalid, c.Topic)
	case c.RetryDelay <= 0:
		return fmt.Errorf("%w: retry delay must be positive, got %v", ErrInvalid, c.RetryDelay)
	}

	ntfy, err := url.Parse(c.NtfyServer)
	if err != nil || (ntfy.Scheme != "http" && ntfy.Scheme != "https") || ntfy.Host == "" {
		return fmt.Errorf("%w: ntfy server %q must be an http(s) URL", ErrInvalid, c.NtfyServer)
	}
	relay, err := url.Parse(c.RelayURL)
	if err != nil || (relay.Scheme != "ws" && relay.Scheme != "wss") || relay.Host == "" {
		return fmt.Errorf("%w: relay url %q must be a ws(s) URL", ErrInvalid, c.RelayURL)
	}
	return nil
}

// TopicURL is the endpoint notifications are posted to.
func (c Config) TopicURL() string {
	return c.NtfyServer + "/" + url.PathEscape(c.Topic)
}

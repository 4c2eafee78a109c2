// Package config loads the application configuration from YAML files with
// environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey struct {
		Access string `json:"access" yaml:"access"`
	} `json:"secretKey" yaml:"secretKey"`

	// Realtime configuration for the client-side channel manager
	Realtime *RealtimeConfig `json:"realtime" yaml:"realtime"`

	// Alerts configuration for the notification dispatcher
	Alerts *AlertConfig `json:"alerts" yaml:"alerts"`

	// Hub configuration for the gateway fan-out hub
	Hub *HubConfig `json:"hub" yaml:"hub"`

	// Firebase configuration for push notifications
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// PubSub configuration for event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// QRCode configuration for delivery hand-off QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RealtimeConfig defines the channel manager's transport and retry policy.
type RealtimeConfig struct {
	// Gateway base URL, e.g. wss://gateway.example.com
	URL string `json:"url" yaml:"url"`

	// Connection timeout for one dial plus handshake
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout"`

	// Bounded reconnect policy after a transport drop
	ReconnectAttempts int           `json:"reconnectAttempts" yaml:"reconnectAttempts"`
	ReconnectDelay    time.Duration `json:"reconnectDelay" yaml:"reconnectDelay"`
	MaxReconnectDelay time.Duration `json:"maxReconnectDelay" yaml:"maxReconnectDelay"`

	// Long-poll fallback tuning
	PollTimeout time.Duration `json:"pollTimeout" yaml:"pollTimeout"`
}

// Normalized returns a copy with unset values replaced by defaults.
func (c *RealtimeConfig) Normalized() RealtimeConfig {
	out := RealtimeConfig{}
	if c != nil {
		out = *c
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = 20 * time.Second
	}
	if out.ReconnectAttempts <= 0 {
		out.ReconnectAttempts = 5
	}
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = time.Second
	}
	if out.MaxReconnectDelay <= 0 {
		out.MaxReconnectDelay = 5 * time.Second
	}
	if out.PollTimeout <= 0 {
		out.PollTimeout = 25 * time.Second
	}

	return out
}

// AlertConfig defines notification dispatcher tuning. OS-level notification
// dismissal has no knob here: the platform notification service owns it.
type AlertConfig struct {
	// Duration of the full-screen flash overlay
	FlashDuration time.Duration `json:"flashDuration" yaml:"flashDuration"`

	// Title blink bound and cadence
	TitleBlinkCycles   int           `json:"titleBlinkCycles" yaml:"titleBlinkCycles"`
	TitleBlinkInterval time.Duration `json:"titleBlinkInterval" yaml:"titleBlinkInterval"`

	// Path of the persisted preference file
	PreferencesPath string `json:"preferencesPath" yaml:"preferencesPath"`
}

// Normalized returns a copy with unset values replaced by defaults.
func (c *AlertConfig) Normalized() AlertConfig {
	out := AlertConfig{}
	if c != nil {
		out = *c
	}
	if out.FlashDuration <= 0 {
		out.FlashDuration = 550 * time.Millisecond
	}
	if out.TitleBlinkCycles <= 0 {
		out.TitleBlinkCycles = 20
	}
	if out.TitleBlinkInterval <= 0 {
		out.TitleBlinkInterval = time.Second
	}
	if out.PreferencesPath == "" {
		out.PreferencesPath = ".pulse-preferences.json"
	}

	return out
}

// HubConfig defines the gateway hub's connection tuning.
type HubConfig struct {
	WriteWait    time.Duration `json:"writeWait" yaml:"writeWait"`
	PongWait     time.Duration `json:"pongWait" yaml:"pongWait"`
	MaxMsgSize   int64         `json:"maxMsgSize" yaml:"maxMsgSize"`
	SendBuffer   int           `json:"sendBuffer" yaml:"sendBuffer"`
	PollBatchMax int           `json:"pollBatchMax" yaml:"pollBatchMax"`
}

// Normalized returns a copy with unset values replaced by defaults.
func (c *HubConfig) Normalized() HubConfig {
	out := HubConfig{}
	if c != nil {
		out = *c
	}
	if out.WriteWait <= 0 {
		out.WriteWait = 10 * time.Second
	}
	if out.PongWait <= 0 {
		out.PongWait = 60 * time.Second
	}
	if out.MaxMsgSize <= 0 {
		out.MaxMsgSize = 1 << 20
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = 256
	}
	if out.PollBatchMax <= 0 {
		out.PollBatchMax = 100
	}

	return out
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: REALTIME_DIALTIMEOUT -> realtime.dialTimeout (not realtime.dialtimeout)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}

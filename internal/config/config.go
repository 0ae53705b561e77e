package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML file loaded before env overrides.
const FileEnv = "TRANSCRIBER_CONFIG"

type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	STT           STTConfig           `yaml:"stt"`
	Transcriber   TranscriberConfig   `yaml:"transcriber"`
	Display       DisplayConfig       `yaml:"display"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Name        string `yaml:"name"`
	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`
}

type STTConfig struct {
	Provider       string `yaml:"provider"` // mock | google
	LanguageCode   string `yaml:"language_code"`
	Continuous     bool   `yaml:"continuous"`
	InterimResults bool   `yaml:"interim_results"`

	// google
	SampleRateHz  int    `yaml:"sample_rate_hz"`
	AudioEncoding string `yaml:"audio_encoding"`
	AudioSource   string `yaml:"audio_source"` // "-" for stdin, or a .wav/raw PCM path

	// mock
	MockInterval             time.Duration `yaml:"mock_interval"`
	MockUtterancesPerSession int           `yaml:"mock_utterances_per_session"`
}

type TranscriberConfig struct {
	InterimTimeout time.Duration `yaml:"interim_timeout"` // 0 disables
	ClipboardMode  string        `yaml:"clipboard_mode"`  // system | memory
}

type DisplayConfig struct {
	Console bool `yaml:"console"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	TopicDisplay string   `yaml:"topic_display"`
	Principal    string   `yaml:"principal"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json | console
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Name:        "live-transcriber",
			HTTPPort:    "8080",
			MetricsPort: "9090",
		},
		STT: STTConfig{
			Provider:                 "mock",
			LanguageCode:             "en-US",
			Continuous:               true,
			InterimResults:           true,
			SampleRateHz:             16000,
			AudioEncoding:            "LINEAR16",
			AudioSource:              "-",
			MockInterval:             300 * time.Millisecond,
			MockUtterancesPerSession: 2,
		},
		Transcriber: TranscriberConfig{
			ClipboardMode: "system",
		},
		Display: DisplayConfig{
			Console: true,
		},
		Kafka: KafkaConfig{
			TopicDisplay: "transcript.display",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// TRANSCRIBER_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Name = envOrDefault("SERVICE_NAME", cfg.Service.Name)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)
	cfg.Service.MetricsPort = envOrDefault("METRICS_PORT", cfg.Service.MetricsPort)

	cfg.STT.Provider = envOrDefault("STT_PROVIDER", cfg.STT.Provider)
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.Continuous = envOrDefaultBool("STT_CONTINUOUS", cfg.STT.Continuous)
	cfg.STT.InterimResults = envOrDefaultBool("STT_INTERIM_RESULTS", cfg.STT.InterimResults)
	cfg.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", cfg.STT.SampleRateHz)
	cfg.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.STT.AudioEncoding)
	cfg.STT.AudioSource = envOrDefault("STT_AUDIO_SOURCE", cfg.STT.AudioSource)
	cfg.STT.MockInterval = envOrDefaultDuration("STT_MOCK_INTERVAL", cfg.STT.MockInterval)
	cfg.STT.MockUtterancesPerSession = envOrDefaultInt("STT_MOCK_UTTERANCES_PER_SESSION", cfg.STT.MockUtterancesPerSession)

	cfg.Transcriber.InterimTimeout = envOrDefaultDuration("TRANSCRIBER_INTERIM_TIMEOUT", cfg.Transcriber.InterimTimeout)
	cfg.Transcriber.ClipboardMode = envOrDefault("CLIPBOARD_MODE", cfg.Transcriber.ClipboardMode)

	cfg.Display.Console = envOrDefaultBool("DISPLAY_CONSOLE", cfg.Display.Console)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicDisplay = envOrDefault("KAFKA_TOPIC_DISPLAY", cfg.Kafka.TopicDisplay)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Name
	}

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.STT.Provider {
	case "mock", "google":
	default:
		return fmt.Errorf("stt.provider must be one of mock|google, got %q", c.STT.Provider)
	}
	switch c.Transcriber.ClipboardMode {
	case "system", "memory":
	default:
		return fmt.Errorf("transcriber.clipboard_mode must be one of system|memory, got %q", c.Transcriber.ClipboardMode)
	}
	if c.Service.HTTPPort == "" {
		return errors.New("service.http_port must not be empty")
	}
	if c.STT.SampleRateHz <= 0 {
		return errors.New("stt.sample_rate_hz must be positive")
	}
	if c.STT.MockUtterancesPerSession <= 0 {
		return errors.New("stt.mock_utterances_per_session must be positive")
	}
	if c.Transcriber.InterimTimeout < 0 {
		return errors.New("transcriber.interim_timeout must be >= 0")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping blanks.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

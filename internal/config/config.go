package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Predictor modes.
const (
	PredictorToy      = "toy"
	PredictorArtifact = "artifact"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data and model configuration.
	DataDir          string
	PredictorMode    string
	ModelPath        string
	ClimateCacheSize int

	// LLM chat configuration.
	LLMAPIKey      string
	LLMAPIURL      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMMaxTokens   int

	// Kafka scenario pipeline configuration.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	llmTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("LLM_TIMEOUT", "30s"))
	if err != nil || llmTimeout <= 0 {
		return nil, errors.New("invalid LLM_TIMEOUT")
	}

	temperature, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("LLM_TEMPERATURE", "0.7"), 64)
	if err != nil || temperature < 0 || temperature > 2 {
		return nil, errors.New("invalid LLM_TEMPERATURE: must be 0-2")
	}

	maxTokens, err := parsePositiveInt("LLM_MAX_TOKENS", 800)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CLIMATE_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:          sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		PredictorMode:    sharedcfg.EnvOrDefault("PREDICTOR_MODE", PredictorToy),
		ModelPath:        sharedcfg.EnvOrDefault("MODEL_PATH", "model.msgpack"),
		ClimateCacheSize: cacheSize,

		LLMAPIKey:      apiKey,
		LLMAPIURL:      sharedcfg.EnvOrDefault("LLM_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		LLMModel:       sharedcfg.EnvOrDefault("LLM_MODEL", "llama3-8b-8192"),
		LLMTimeout:     llmTimeout,
		LLMTemperature: temperature,
		LLMMaxTokens:   maxTokens,

		PipelineEnabled:    os.Getenv("PIPELINE_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "scenario-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "scenario-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "reservoir-scenario"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.PredictorMode {
	case PredictorToy, PredictorArtifact:
	default:
		return nil, fmt.Errorf("invalid PREDICTOR_MODE %q: must be %s or %s", cfg.PredictorMode, PredictorToy, PredictorArtifact)
	}
	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

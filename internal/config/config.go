package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
	Log    LogConfig
	Rules  RulesConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	rules, err := loadRulesConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: store, Log: logCfg, Rules: rules}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as given.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the external generation model.
type AIConfig struct {
	APIKey            string
	AccessKey         string
	SecretKey         string
	Model             string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	GenerationTimeout time.Duration
	RoleMarker        string
	PersonaID         string
}

// Enabled reports whether a model and credentials are configured.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_GENERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	modelName := strings.TrimSpace(os.Getenv("MODEL"))
	if modelName == "" {
		modelName = strings.TrimSpace(os.Getenv("Model"))
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             modelName,
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		GenerationTimeout: timeout,
		RoleMarker:        getEnvOrDefault("AI_ROLE_MARKER", "Оданн:"),
		PersonaID:         getEnvOrDefault("PERSONA_ID", "odann"),
	}, nil
}

// StoreConfig selects the relational backend of the message store.
type StoreConfig struct {
	Driver   string
	DSN      string
	LogLevel string
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite))
	switch driver {
	case DriverSQLite, DriverMySQL:
	default:
		return StoreConfig{}, fmt.Errorf("invalid DB_DRIVER value %q: want sqlite or mysql", driver)
	}

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		if driver == DriverMySQL {
			return StoreConfig{}, fmt.Errorf("DB_DSN is required for the mysql driver")
		}
		dsn = "data/sky-inn.db"
	}

	return StoreConfig{
		Driver:   driver,
		DSN:      dsn,
		LogLevel: getEnvOrDefault("DB_LOG_LEVEL", "warn"),
	}, nil
}

// LogConfig controls zap output and lumberjack file rotation.
type LogConfig struct {
	Mode       string
	Level      string
	FileName   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

func loadLogConfig() (LogConfig, error) {
	cfg := LogConfig{
		Mode:     getEnvOrDefault("LOG_MODE", "dev"),
		Level:    getEnvOrDefault("LOG_LEVEL", "info"),
		FileName: getEnvOrDefault("LOG_FILE", "logs/sky-inn.log"),
	}

	for key, dst := range map[string]*int{
		"LOG_MAX_SIZE_MB":  &cfg.MaxSize,
		"LOG_MAX_BACKUPS":  &cfg.MaxBackups,
		"LOG_MAX_AGE_DAYS": &cfg.MaxAge,
	} {
		val, err := parseOptionalIntEnv(key)
		if err != nil {
			return LogConfig{}, err
		}
		if val != nil {
			*dst = *val
		}
	}

	return cfg, nil
}

// RulesConfig points at optional data files overriding the built-in
// classification rules and reply pools.
type RulesConfig struct {
	EmotionRulesFile string
	ReplyPoolsFile   string
	Seed             *int
}

func loadRulesConfig() (RulesConfig, error) {
	seed, err := parseOptionalIntEnv("REPLY_SEED")
	if err != nil {
		return RulesConfig{}, err
	}

	return RulesConfig{
		EmotionRulesFile: strings.TrimSpace(os.Getenv("EMOTION_RULES_FILE")),
		ReplyPoolsFile:   strings.TrimSpace(os.Getenv("REPLY_POOLS_FILE")),
		Seed:             seed,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

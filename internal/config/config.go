package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultReplicateTextModel  = "snowflake/snowflake-arctic-instruct"
	defaultReplicateImageModel = "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"
	defaultOpenAITextModel     = "gpt-3.5-turbo-instruct"
	defaultOpenAIImageModel    = "dall-e-3"
	defaultGeminiTextModel     = "gemini-1.5-flash"
	defaultGeminiImageModel    = "imagen-3.0-generate-002"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	AI       AIConfig
	Chat     ChatConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	Secret        string
	Issuer        string
	TTL           time.Duration
	CookieName    string
	CookieSecure  bool
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	TextModel          string
	ImageModel         string
	ImagesEnabled      bool
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type ChatConfig struct {
	Greeting           string
	MaxPromptTokens    int
	DefaultTemperature float64
	DefaultTopP        float64
	TokenizerFile      string
	TokenizerModel     string
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	dbEnabled, err := parseBoolEnv("DB_ENABLED", false)
	if err != nil {
		return cfg, err
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Enabled:         dbEnabled,
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "arctic"),
		Password:        getEnv("DB_PASSWORD", "arctic"),
		Name:            getEnv("DB_NAME", "arctic_chat"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return cfg, err
	}

	cookieSecure, err := parseBoolEnv("SESSION_COOKIE_SECURE", false)
	if err != nil {
		return cfg, err
	}

	sessionIdle, err := parseDurationEnv("SESSION_IDLE_TIMEOUT", 24*time.Hour)
	if err != nil {
		return cfg, err
	}

	sweepInterval, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return cfg, err
	}

	maxSessions, err := parseIntEnv("SESSION_MAX", 1000)
	if err != nil {
		return cfg, err
	}

	cfg.Session = SessionConfig{
		Secret:        getEnv("SESSION_SECRET", ""),
		Issuer:        getEnv("SESSION_ISSUER", "arctic-chat"),
		TTL:           sessionTTL,
		CookieName:    getEnv("SESSION_COOKIE_NAME", "arctic_session"),
		CookieSecure:  cookieSecure,
		IdleTimeout:   sessionIdle,
		SweepInterval: sweepInterval,
		MaxSessions:   maxSessions,
	}

	aiTimeout, err := parseDurationEnv("AI_TIMEOUT", 2*time.Minute)
	if err != nil {
		return cfg, err
	}

	aiRateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		return cfg, err
	}

	aiRateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 5)
	if err != nil {
		return cfg, err
	}

	imagesEnabled, err := parseBoolEnv("AI_IMAGES_ENABLED", true)
	if err != nil {
		return cfg, err
	}

	aiProvider := strings.ToLower(getEnv("AI_PROVIDER", "replicate"))
	defaultTextModel, defaultImageModel, keyEnv := providerDefaults(aiProvider)

	aiAPIKey := getEnv("AI_API_KEY", "")
	if aiAPIKey == "" && keyEnv != "" {
		aiAPIKey = getEnv(keyEnv, "")
	}

	cfg.AI = AIConfig{
		Provider:           aiProvider,
		APIKey:             aiAPIKey,
		BaseURL:            getEnv("AI_BASE_URL", ""),
		TextModel:          getEnv("AI_TEXT_MODEL", defaultTextModel),
		ImageModel:         getEnv("AI_IMAGE_MODEL", defaultImageModel),
		ImagesEnabled:      imagesEnabled,
		Timeout:            aiTimeout,
		RateLimitPerMinute: aiRateLimitPerMinute,
		RateLimitBurst:     aiRateLimitBurst,
	}

	maxPromptTokens, err := parseIntEnv("CHAT_MAX_PROMPT_TOKENS", 1500)
	if err != nil {
		return cfg, err
	}

	defaultTemperature, err := parseFloatEnv("CHAT_DEFAULT_TEMPERATURE", 0.3)
	if err != nil {
		return cfg, err
	}

	defaultTopP, err := parseFloatEnv("CHAT_DEFAULT_TOP_P", 0.9)
	if err != nil {
		return cfg, err
	}

	cfg.Chat = ChatConfig{
		Greeting:           getEnv("CHAT_GREETING", ""),
		MaxPromptTokens:    maxPromptTokens,
		DefaultTemperature: defaultTemperature,
		DefaultTopP:        defaultTopP,
		TokenizerFile:      getEnv("TOKENIZER_FILE", ""),
		TokenizerModel:     getEnv("TOKENIZER_MODEL", "huggyllama/llama-7b"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func providerDefaults(provider string) (textModel, imageModel, keyEnv string) {
	switch provider {
	case "openai":
		return defaultOpenAITextModel, defaultOpenAIImageModel, "OPENAI_API_KEY"
	case "gemini":
		return defaultGeminiTextModel, defaultGeminiImageModel, "GEMINI_API_KEY"
	case "replicate":
		return defaultReplicateTextModel, defaultReplicateImageModel, "REPLICATE_API_TOKEN"
	default:
		return "", "", ""
	}
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}

		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}

		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}

		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}

	switch c.AI.Provider {
	case "replicate", "openai", "gemini":
	default:
		return fmt.Errorf("AI_PROVIDER must be one of replicate, openai, gemini")
	}

	if c.AI.APIKey == "" {
		return fmt.Errorf("AI_API_KEY is required")
	}

	if c.AI.TextModel == "" {
		return fmt.Errorf("AI_TEXT_MODEL is required")
	}

	if c.AI.ImagesEnabled && c.AI.ImageModel == "" {
		return fmt.Errorf("AI_IMAGE_MODEL is required when images are enabled")
	}

	if c.Chat.DefaultTemperature < 0.01 || c.Chat.DefaultTemperature > 5.0 {
		return fmt.Errorf("CHAT_DEFAULT_TEMPERATURE must be within [0.01, 5.0]")
	}

	if c.Chat.DefaultTopP < 0.01 || c.Chat.DefaultTopP > 1.0 {
		return fmt.Errorf("CHAT_DEFAULT_TOP_P must be within [0.01, 1.0]")
	}

	if c.Chat.TokenizerFile == "" && c.Chat.TokenizerModel == "" {
		return fmt.Errorf("TOKENIZER_FILE or TOKENIZER_MODEL is required")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Session SessionConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	GPSTraceFilePath   string
	CorsAllowedOrigins string
	NatsURL            string // empty disables NATS forwarding and the fix feed
	RedisURL           string // empty disables cross-instance websocket fan-out
	JWTSecret          string // empty leaves the API open
}

type SessionConfig struct {
	DefaultUsesLocation bool
	GrantedCapabilities []string // what the simulated OS has already granted
	IdleTTL             time.Duration
	CleanupInterval     time.Duration
	LooperBuffer        int
	CallTimeout         time.Duration
	FixSubject          string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "arsession.log"),
			GPSTraceFilePath:   getEnv("GPS_TRACE_FILE_PATH", "gps-trace.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Session: SessionConfig{
			DefaultUsesLocation: getEnvAsBool("SESSION_USES_LOCATION", false),
			GrantedCapabilities: getEnvAsList("SIM_GRANTED_CAPABILITIES", nil),
			IdleTTL:             getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
			CleanupInterval:     getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
			LooperBuffer:        getEnvAsInt("SESSION_LOOPER_BUFFER", 64),
			CallTimeout:         getEnvAsDuration("SESSION_CALL_TIMEOUT", 5*time.Second),
			FixSubject:          getEnv("FIX_SUBJECT", "geofix.*"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ar-session-core"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, fallback []string) []string {
	strValue, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

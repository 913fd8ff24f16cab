package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nearu/nearu-backend/internal/crossing"
)

// Config 应用配置
type Config struct {
	AppEnv   string
	Port     string
	DBPath   string
	TestMode bool

	// Bearer tokens issued by the identity provider
	JWTSecret string
	JWTIssuer string

	// Change feed; empty RedisAddr selects the in-process feed
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Push delivery; empty RabbitURL logs pushes instead of publishing
	RabbitURL      string
	RabbitExchange string

	LogLevel  string
	LogFormat string

	// Rate limit per client IP
	RLRequestsPerSecond float64
	RLBurst             int

	// Path crossings
	Crossing crossing.Config

	// Nearby discovery
	NearbyRadiusMeters float64
	ActiveWindow       time.Duration
	MinMoveMeters      float64
	SimulatedUsers     []string
	SimulationInterval time.Duration
}

// Load 加载配置
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getEnv("PORT", ":8080")
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	cfg.DBPath = getEnv("DB_PATH", "./data/nearu.db")
	cfg.TestMode = getBool("TEST_MODE", false)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)

	cfg.RabbitURL = getEnv("RABBITMQ_URL", "")
	cfg.RabbitExchange = getEnv("RABBITMQ_EXCHANGE", "nearu.push")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.RLRequestsPerSecond = getFloat("RL_REQUESTS_PER_SECOND", 10)
	cfg.RLBurst = getInt("RL_BURST", 20)

	base := crossing.DefaultConfig()
	if cfg.TestMode {
		base = crossing.TestModeConfig()
	}
	cfg.Crossing = crossing.Config{
		Debounce:          getDuration("CROSSING_DEBOUNCE", base.Debounce),
		Retention:         getDuration("CROSSING_RETENTION", base.Retention),
		MaxDistanceMeters: getFloat("CROSSING_MAX_DISTANCE_METERS", base.MaxDistanceMeters),
		RequiredCrossings: getInt("CROSSING_REQUIRED", base.RequiredCrossings),
	}

	cfg.NearbyRadiusMeters = getFloat("NEARBY_RADIUS_METERS", 500)
	cfg.ActiveWindow = getDuration("ACTIVE_WINDOW", time.Hour)
	cfg.MinMoveMeters = getFloat("MIN_MOVE_METERS", 50)
	cfg.SimulatedUsers = getList("SIMULATED_USERS")
	cfg.SimulationInterval = getDuration("SIMULATION_INTERVAL", 10*time.Second)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.AppEnv != "dev" {
			return fmt.Errorf("missing JWT_SECRET (required when APP_ENV != dev)")
		}
		c.JWTSecret = "dev-secret-change-in-production"
	}
	if c.Crossing.Debounce < 0 || c.Crossing.Retention <= 0 {
		return fmt.Errorf("invalid crossing windows: debounce=%s retention=%s", c.Crossing.Debounce, c.Crossing.Retention)
	}
	if c.Crossing.MaxDistanceMeters <= 0 || c.Crossing.RequiredCrossings < 1 {
		return fmt.Errorf("invalid crossing thresholds: distance=%v required=%d",
			c.Crossing.MaxDistanceMeters, c.Crossing.RequiredCrossings)
	}
	if c.NearbyRadiusMeters <= 0 || c.ActiveWindow <= 0 {
		return fmt.Errorf("invalid nearby settings: radius=%v window=%s", c.NearbyRadiusMeters, c.ActiveWindow)
	}
	if len(c.SimulatedUsers) > 0 && !c.TestMode {
		return fmt.Errorf("SIMULATED_USERS requires TEST_MODE=true")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// getDuration accepts Go durations ("5s") or plain milliseconds ("5000")
func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

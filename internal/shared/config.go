package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Approval store backends selectable with APPROVAL_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	HostawayBase   string
	HostawayToken  string
	HostawayRPS    int
	ApprovalStore  string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	ImportWorkers  int
}

// Load reads the process environment, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env present but unreadable")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		HostawayBase:   env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayToken:  strings.TrimSpace(os.Getenv("HOSTAWAY_ACCESS_TOKEN")),
		HostawayRPS:    atoi("HOSTAWAY_RPS", 5),
		ApprovalStore:  strings.ToLower(env("APPROVAL_BACKEND", BackendMemory)),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/flex?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 30)) * time.Second,
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		ImportWorkers:  atoi("IMPORT_WORKERS", 8),
	}
	if c.HostawayToken == "" {
		log.Warn().Msg("HOSTAWAY_ACCESS_TOKEN is empty; serving the bundled review dataset")
	}
	if c.ApprovalStore == BackendRedis && c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

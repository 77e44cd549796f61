package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	APIBase  string
	APIToken string
	APIRPS   int

	PageSize         int
	InvocationBudget time.Duration
	StepDelay        time.Duration
	RetryDelay       time.Duration
	StallThreshold   time.Duration
	SyncInterval     time.Duration
	FullSyncCron     string
	LogLimit         int
	LogFlushSize     int
	HistoryLimit     int
	MigrationsDir    string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	secs := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Second
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/seminargo?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		APIBase:  env("HOTEL_API_URL", "https://api.seminargo.com/graphql"),
		APIToken: env("HOTEL_API_TOKEN", ""),
		APIRPS:   atoi("HOTEL_API_RPS", 5),

		PageSize: atoi("SYNC_PAGE_SIZE", 200),
		// Stays well under the 60s execution ceiling the legacy host
		// enforced; the API request timeout is derived from this budget.
		InvocationBudget: secs("SYNC_BUDGET_SECONDS", 50),
		StepDelay:        secs("SYNC_STEP_DELAY_SECONDS", 1),
		RetryDelay:       secs("SYNC_RETRY_DELAY_SECONDS", 30),
		StallThreshold:   secs("SYNC_STALL_SECONDS", 7200),
		SyncInterval:     secs("SYNC_INTERVAL_SECONDS", 4*3600),
		FullSyncCron:     env("SYNC_FULL_CRON", "0 3 * * 1"),
		LogLimit:         atoi("SYNC_LOG_LIMIT", 500),
		LogFlushSize:     atoi("SYNC_LOG_FLUSH", 20),
		HistoryLimit:     atoi("SYNC_HISTORY_LIMIT", 10),
		MigrationsDir:    env("MIGRATIONS_DIR", "migrations"),
	}
	if c.APIToken == "" {
		log.Warn().Msg("HOTEL_API_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

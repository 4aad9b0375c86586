// internal/config/config.go
//
// Process configuration read from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port           string
	LogLevel       string
	DBPath         string // empty keeps everything in memory
	AssetsDir      string // optional override for embedded assets
	RoundSize      int
	LabelDuration  time.Duration
	SessionIdle    time.Duration
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	AnonCookieName string
	ClientOrigin   string
	DailySalt      string
	Env            string
}

// Load reads .env (if any) and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBPath:         os.Getenv("DB_PATH"),
		AssetsDir:      os.Getenv("ASSETS_DIR"),
		RoundSize:      envInt("ROUND_SIZE", 5),
		LabelDuration:  time.Duration(envInt("LABEL_MS", 2000)) * time.Millisecond,
		SessionIdle:    time.Duration(envInt("SESSION_IDLE_MIN", 30)) * time.Minute,
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "househunt_token"),
		AnonCookieName: getEnv("ANON_COOKIE_NAME", "househunt_anon"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		Env:            getEnv("NODE_ENV", "development"),
	}
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Env == "production" }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as a non-negative int, falling back to def.
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

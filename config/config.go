package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config file or the environment.
type AppConfig struct {
	AppPort   string
	GinMode   string
	JWTSecret string

	// Session lifetimes
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	// Email verification codes
	CodeTTLMinutes    int
	ResendCooldownSec int
	ResendMaxPerDay   int

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// SMTP for email verification
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool

	// Redis for caching/cooldowns; empty host disables Redis entirely
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	AllowedOrigins []string
	CookieDomain   string
	CookieSecure   bool

	// Rate limiting: global per-IP bucket plus fixed-window creation limits
	RateLimitPerMinute   int
	CreateLimitPerMinute int

	// Logging configuration
	LogLevel      string
	LogPath       string
	GinLogPath    string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Override replaces the cached configuration. Intended for tests.
func Override(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// jsonConfig mirrors AppConfig with grouped sections so operators can keep
// related settings together in config/config.json.
type jsonConfig struct {
	App *struct {
		AppPort              string   `json:"AppPort"`
		GinMode              string   `json:"GinMode"`
		JWTSecret            string   `json:"JWTSecret"`
		AllowedOrigins       []string `json:"AllowedOrigins"`
		CookieDomain         string   `json:"CookieDomain"`
		CookieSecure         bool     `json:"CookieSecure"`
		RateLimitPerMinute   int      `json:"RateLimitPerMinute"`
		CreateLimitPerMinute int      `json:"CreateLimitPerMinute"`
	} `json:"app"`
	Session *struct {
		AccessTokenTTLMinutes int `json:"AccessTokenTTLMinutes"`
		RefreshTokenTTLDays   int `json:"RefreshTokenTTLDays"`
		CodeTTLMinutes        int `json:"CodeTTLMinutes"`
		ResendCooldownSec     int `json:"ResendCooldownSec"`
		ResendMaxPerDay       int `json:"ResendMaxPerDay"`
	} `json:"session"`
	Database *struct {
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	SMTP *struct {
		SMTPHost     string `json:"SMTPHost"`
		SMTPPort     int    `json:"SMTPPort"`
		SMTPUsername string `json:"SMTPUsername"`
		SMTPPassword string `json:"SMTPPassword"`
		SMTPFrom     string `json:"SMTPFrom"`
		SMTPFromName string `json:"SMTPFromName"`
		SMTPTLS      bool   `json:"SMTPTLS"`
	} `json:"smtp"`
	Redis *struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	Log *struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		GinPath    string `json:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var jc jsonConfig
	if err := json.NewDecoder(f).Decode(&jc); err != nil {
		return err
	}

	if a := jc.App; a != nil {
		out.AppPort = a.AppPort
		out.GinMode = a.GinMode
		out.JWTSecret = a.JWTSecret
		out.AllowedOrigins = a.AllowedOrigins
		out.CookieDomain = a.CookieDomain
		out.CookieSecure = a.CookieSecure
		out.RateLimitPerMinute = a.RateLimitPerMinute
		out.CreateLimitPerMinute = a.CreateLimitPerMinute
	}
	if s := jc.Session; s != nil {
		out.AccessTokenTTLMinutes = s.AccessTokenTTLMinutes
		out.RefreshTokenTTLDays = s.RefreshTokenTTLDays
		out.CodeTTLMinutes = s.CodeTTLMinutes
		out.ResendCooldownSec = s.ResendCooldownSec
		out.ResendMaxPerDay = s.ResendMaxPerDay
	}
	if d := jc.Database; d != nil {
		out.DatabaseURI = d.DatabaseURI
		out.DBHost = d.DBHost
		out.DBPort = d.DBPort
		out.DBUser = d.DBUser
		out.DBPassword = d.DBPassword
		out.DBName = d.DBName
	}
	if s := jc.SMTP; s != nil {
		out.SMTPHost = s.SMTPHost
		out.SMTPPort = s.SMTPPort
		out.SMTPUsername = s.SMTPUsername
		out.SMTPPassword = s.SMTPPassword
		out.SMTPFrom = s.SMTPFrom
		out.SMTPFromName = s.SMTPFromName
		out.SMTPTLS = s.SMTPTLS
	}
	if r := jc.Redis; r != nil {
		out.RedisHost = r.RedisHost
		out.RedisPort = r.RedisPort
		out.RedisDB = r.RedisDB
		out.RedisPassword = r.RedisPassword
	}
	if l := jc.Log; l != nil {
		out.LogLevel = l.Level
		out.LogPath = l.Path
		out.GinLogPath = l.GinPath
		out.LogMaxSizeMB = l.MaxSizeMB
		out.LogMaxBackups = l.MaxBackups
		out.LogMaxAgeDays = l.MaxAgeDays
		out.LogCompress = l.Compress
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.AccessTokenTTLMinutes == 0 {
		c.AccessTokenTTLMinutes = 15
	}
	if c.RefreshTokenTTLDays == 0 {
		c.RefreshTokenTTLDays = 30
	}
	if c.CodeTTLMinutes == 0 {
		c.CodeTTLMinutes = 10
	}
	if c.ResendCooldownSec == 0 {
		c.ResendCooldownSec = 60
	}
	if c.ResendMaxPerDay == 0 {
		c.ResendMaxPerDay = 10
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "linklet"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.CreateLimitPerMinute == 0 {
		c.CreateLimitPerMinute = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GinLogPath == "" {
		c.GinLogPath = "logs/gin_access.log"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(v)
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true"
		}
	}

	setStr("APP_PORT", &c.AppPort)
	setStr("GIN_MODE", &c.GinMode)
	setStr("JWT_SECRET", &c.JWTSecret)
	setInt("ACCESS_TOKEN_TTL_MINUTES", &c.AccessTokenTTLMinutes)
	setInt("REFRESH_TOKEN_TTL_DAYS", &c.RefreshTokenTTLDays)
	setInt("CODE_TTL_MINUTES", &c.CodeTTLMinutes)
	setInt("RESEND_COOLDOWN_SEC", &c.ResendCooldownSec)
	setInt("RESEND_MAX_PER_DAY", &c.ResendMaxPerDay)
	setStr("DATABASE_URI", &c.DatabaseURI)
	setStr("DB_HOST", &c.DBHost)
	setStr("DB_PORT", &c.DBPort)
	setStr("DB_USER", &c.DBUser)
	setStr("DB_PASSWORD", &c.DBPassword)
	setStr("DB_NAME", &c.DBName)
	setStr("SMTP_HOST", &c.SMTPHost)
	setInt("SMTP_PORT", &c.SMTPPort)
	setStr("SMTP_USERNAME", &c.SMTPUsername)
	setStr("SMTP_PASSWORD", &c.SMTPPassword)
	setStr("SMTP_FROM", &c.SMTPFrom)
	setStr("SMTP_FROM_NAME", &c.SMTPFromName)
	setBool("SMTP_TLS", &c.SMTPTLS)
	setStr("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setStr("REDIS_PASSWORD", &c.RedisPassword)
	setStr("COOKIE_DOMAIN", &c.CookieDomain)
	setBool("COOKIE_SECURE", &c.CookieSecure)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	setInt("CREATE_LIMIT_PER_MINUTE", &c.CreateLimitPerMinute)
	setStr("LOG_LEVEL", &c.LogLevel)
	setStr("LOG_PATH", &c.LogPath)
	setStr("GIN_LOG_PATH", &c.GinLogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

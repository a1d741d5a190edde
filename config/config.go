package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	AppEnv             string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	TLSCertFile        string
	TLSKeyFile         string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Single admin principal
	AdminKeyHash string
	AdminID      string
	AdminName    string
	// Record store
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for token revocation, login lockout and list caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Object store
	StorageDriver              string
	StorageEndpoint            string
	StorageAccessKey           string
	StorageSecretKey           string
	StorageBucket              string
	StorageRegion              string
	StorageUseSSL              bool
	StoragePublicBaseURL       string
	StorageSignedURLTTLMinutes int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// SMTP for submission notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	NotifyEmail  string
	// Admin login hardening
	LoginMaxFailures          int
	LoginFailureWindowMinutes int
	LoginBanMinutes           int
	// Blob tombstone sweeper
	CleanupIntervalMinutes int
}

// TokenTTL returns the session token lifetime.
func (c AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// SignedURLTTL returns how long presigned download URLs stay valid; zero means public URLs are served.
func (c AppConfig) SignedURLTTL() time.Duration {
	return time.Duration(c.StorageSignedURLTTLMinutes) * time.Minute
}

// IsProduction reports whether internal error details must be hidden from responses.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() (AppConfig, error) {
	if loaded {
		return cfg, nil
	}

	// .env is optional; real environment variables still win because godotenv never overrides them.
	_ = godotenv.Load()

	// Precedence: config/config.json -> defaults -> environment variable overrides
	var next AppConfig
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &next); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&next)
	if err := applyEnvOverrides(&next); err != nil {
		return AppConfig{}, err
	}
	applyDerivedDefaults(&next)
	if err := next.Validate(); err != nil {
		return AppConfig{}, err
	}

	cfg = next
	loaded = true
	return cfg, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		c, err := Load()
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		return c
	}
	return cfg
}

// Validate rejects configurations that would run with an unusable credential setup.
func (c AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in environment variables")
	}
	if c.AdminKeyHash == "" {
		return errors.New("ADMIN_KEY_HASH must be set in environment variables")
	}
	if c.TokenTTLHours <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "memory":
	default:
		return errors.New("DB_DRIVER must be one of mysql, postgres, memory")
	}
	switch c.StorageDriver {
	case "minio", "s3":
	default:
		return errors.New("STORAGE_DRIVER must be one of minio, s3")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.AppEnv = getString(app, "Env")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
		out.TLSCertFile = getString(app, "TLSCertFile")
		out.TLSKeyFile = getString(app, "TLSKeyFile")
		out.CleanupIntervalMinutes = getInt(app, "CleanupIntervalMinutes")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		out.AdminKeyHash = getString(adm, "KeyHash")
		out.AdminID = getString(adm, "ID")
		out.AdminName = getString(adm, "Name")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if st, ok := raw["storage"].(map[string]any); ok {
		out.StorageDriver = getString(st, "Driver")
		out.StorageEndpoint = getString(st, "Endpoint")
		out.StorageAccessKey = getString(st, "AccessKey")
		out.StorageSecretKey = getString(st, "SecretKey")
		out.StorageBucket = getString(st, "Bucket")
		out.StorageRegion = getString(st, "Region")
		out.StorageUseSSL = getBool(st, "UseSSL")
		out.StoragePublicBaseURL = getString(st, "PublicBaseURL")
		out.StorageSignedURLTTLMinutes = getInt(st, "SignedURLTTLMinutes")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTLS = getBool(sm, "SMTPTLS")
		out.NotifyEmail = getString(sm, "NotifyEmail")
	}

	if lo, ok := raw["login"].(map[string]any); ok {
		out.LoginMaxFailures = getInt(lo, "MaxFailures")
		out.LoginFailureWindowMinutes = getInt(lo, "FailureWindowMinutes")
		out.LoginBanMinutes = getInt(lo, "BanMinutes")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppEnv == "" {
		c.AppEnv = "production"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 7 * 24
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.AdminID == "" {
		c.AdminID = "admin"
	}
	if c.AdminName == "" {
		c.AdminName = "Tutor"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "studyshare"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "minio"
	}
	if c.StorageEndpoint == "" {
		c.StorageEndpoint = "127.0.0.1:9000"
	}
	if c.StorageBucket == "" {
		c.StorageBucket = "studyshare"
	}
	if c.StorageRegion == "" {
		c.StorageRegion = "us-east-1"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
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
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.LoginMaxFailures == 0 {
		c.LoginMaxFailures = 10
	}
	if c.LoginFailureWindowMinutes == 0 {
		c.LoginFailureWindowMinutes = 15
	}
	if c.LoginBanMinutes == 0 {
		c.LoginBanMinutes = 15
	}
	if c.CleanupIntervalMinutes == 0 {
		c.CleanupIntervalMinutes = 5
	}
}

// applyDerivedDefaults fills values whose default depends on other settings, after env overrides.
func applyDerivedDefaults(c *AppConfig) {
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	// Without a public bucket URL every download has to be presigned.
	if c.StoragePublicBaseURL == "" && c.StorageSignedURLTTLMinutes <= 0 {
		c.StorageSignedURLTTLMinutes = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":                &c.AppPort,
		"APP_ENV":                 &c.AppEnv,
		"JWT_SECRET":              &c.JWTSecret,
		"GIN_MODE":                &c.GinMode,
		"GIN_PATH":                &c.GinPath,
		"TLS_CERT_FILE":           &c.TLSCertFile,
		"TLS_KEY_FILE":            &c.TLSKeyFile,
		"ADMIN_KEY_HASH":          &c.AdminKeyHash,
		"ADMIN_ID":                &c.AdminID,
		"ADMIN_NAME":              &c.AdminName,
		"DB_DRIVER":               &c.DBDriver,
		"DATABASE_URI":            &c.DatabaseURI,
		"DB_HOST":                 &c.DBHost,
		"DB_PORT":                 &c.DBPort,
		"DB_USER":                 &c.DBUser,
		"DB_PASSWORD":             &c.DBPassword,
		"DB_NAME":                 &c.DBName,
		"REDIS_HOST":              &c.RedisHost,
		"REDIS_PASSWORD":          &c.RedisPassword,
		"STORAGE_DRIVER":          &c.StorageDriver,
		"STORAGE_ENDPOINT":        &c.StorageEndpoint,
		"STORAGE_ACCESS_KEY":      &c.StorageAccessKey,
		"STORAGE_SECRET_KEY":      &c.StorageSecretKey,
		"STORAGE_BUCKET":          &c.StorageBucket,
		"STORAGE_REGION":          &c.StorageRegion,
		"STORAGE_PUBLIC_BASE_URL": &c.StoragePublicBaseURL,
		"LOG_LEVEL":               &c.LogLevel,
		"LOG_PATH":                &c.LogPath,
		"SMTP_HOST":               &c.SMTPHost,
		"SMTP_USERNAME":           &c.SMTPUsername,
		"SMTP_PASSWORD":           &c.SMTPPassword,
		"SMTP_FROM":               &c.SMTPFrom,
		"SMTP_FROM_NAME":          &c.SMTPFromName,
		"NOTIFY_EMAIL":            &c.NotifyEmail,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":                &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE":          &c.RateLimitPerMinute,
		"REDIS_PORT":                     &c.RedisPort,
		"REDIS_DB":                       &c.RedisDB,
		"STORAGE_SIGNED_URL_TTL_MINUTES": &c.StorageSignedURLTTLMinutes,
		"LOG_MAX_SIZE_MB":                &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":                &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":               &c.LogMaxAgeDays,
		"SMTP_PORT":                      &c.SMTPPort,
		"LOGIN_MAX_FAILURES":             &c.LoginMaxFailures,
		"LOGIN_FAILURE_WINDOW_MINUTES":   &c.LoginFailureWindowMinutes,
		"LOGIN_BAN_MINUTES":              &c.LoginBanMinutes,
		"CLEANUP_INTERVAL_MINUTES":       &c.CleanupIntervalMinutes,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return errors.New("invalid integer value for " + key + ": " + v)
			}
			*dst = i
		}
	}

	bools := map[string]*bool{
		"STORAGE_USE_SSL": &c.StorageUseSSL,
		"LOG_COMPRESS":    &c.LogCompress,
		"SMTP_TLS":        &c.SMTPTLS,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	return nil
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

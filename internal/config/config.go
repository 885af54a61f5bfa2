package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, is used as-is and the individual components are ignored.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// StorageConfig holds object storage settings. Driver selects the client
// implementation: "minio" (default) or "s3".
type StorageConfig struct {
	Driver        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
	// PublicRead grants anonymous GET on the PDF prefix so object URLs resolve without credentials.
	PublicRead bool
}

// AdminConfig holds the operator credentials and the token settings used by /admin/login/.
// The credentials come from the environment, not from a secret store.
type AdminConfig struct {
	Username  string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
	// Department scopes the timetable records managed with the issued token.
	Department string
}

// AppConfig is the centralized configuration struct for the backend API.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	Timezone       string
	UploadMaxBytes int64
	// ListRequiresAdmin puts the listing endpoint behind the admin token.
	ListRequiresAdmin bool
	// CORSAllowOrigins is a comma-separated origin list for browser clients.
	CORSAllowOrigins string
	Database         DatabaseConfig
	Storage          StorageConfig
	Admin            AdminConfig
}

// Department sources for the upload payload.
const (
	DepartmentFromClaim        = "claim"
	DepartmentFromConstant     = "constant"
	DepartmentFromUserSelected = "user-selected"
)

// PortalConfig configures the operator CLI.
type PortalConfig struct {
	BaseURL          string
	DepartmentSource string
	Department       string
	DepartmentClaim  string
	CopyFeedback     time.Duration
	SessionFile      string
	Timezone         string
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:           getEnv("APP_HOST", "localhost:8000"),
		Port:              getEnv("PORT", "8000"),
		Timezone:          getEnv("APP_TIMEZONE", "UTC"),
		UploadMaxBytes:    uploadMaxBytes(),
		ListRequiresAdmin: getEnvBool("LIST_REQUIRES_ADMIN", false),
		CORSAllowOrigins:  getEnv("CORS_ALLOW_ORIGINS", "*"),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "minio"),
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "timetable-input-bucket"),
			Region:        getEnv("S3_REGION", "us-east-1"),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			PublicRead:    getEnvBool("STORAGE_PUBLIC_READ", true),
		},
		Admin: AdminConfig{
			Username:   getEnv("ADMIN_USERNAME", "admin"),
			Password:   getEnv("ADMIN_PASSWORD", "admin123"),
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   time.Duration(getEnvInt("ADMIN_TOKEN_TTL_MIN", 240)) * time.Minute,
			Department: getEnv("ADMIN_DEPARTMENT", "default"),
		},
	}
}

// DefaultUploadMaxBytes applies when UPLOAD_MAX_BYTES is unset or not a positive number.
const DefaultUploadMaxBytes = 10 << 20

func uploadMaxBytes() int64 {
	n := getEnvInt("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes)
	if n <= 0 {
		return DefaultUploadMaxBytes
	}
	return int64(n)
}

// LoadPortal reads the CLI configuration. The API location falls back to the local loopback backend.
func LoadPortal() *PortalConfig {
	return &PortalConfig{
		BaseURL:          getEnv("PORTAL_API_URL", "http://localhost:8000/api/v1"),
		DepartmentSource: getEnv("PORTAL_DEPARTMENT_SOURCE", DepartmentFromConstant),
		Department:       getEnv("PORTAL_DEPARTMENT", "default"),
		DepartmentClaim:  getEnv("PORTAL_DEPARTMENT_CLAIM", ""),
		CopyFeedback:     time.Duration(getEnvInt("PORTAL_COPY_FEEDBACK_MS", 2000)) * time.Millisecond,
		SessionFile:      getEnv("PORTAL_SESSION_FILE", ""),
		Timezone:         getEnv("APP_TIMEZONE", "UTC"),
	}
}

// Location resolves a timezone name, falling back to UTC when it is unknown.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

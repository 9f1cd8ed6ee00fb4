package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the server configuration read from the environment.
type Config struct {
	PostgresURI    string
	RedisURI       string
	MongoURI       string // optional; print jobs are not audited when empty
	Port           string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // public base URL of this server, e.g. https://api.inkwell.app
	AllowedHost    string   // hostname only for strict host check (production only)
	Environment    string
	LogLevel       string

	// Storage
	StorageDriver       string // local, cloudinary, s3 or memory
	StorageDir          string // root of the local public tree
	ImageSourceDir      string // directory delta image sources are resolved in
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	S3PublicBaseURL     string
	S3PathStyle         bool

	// Print vendor
	LuluClientKey     string
	LuluClientSecret  string
	LuluAuthURL       string
	LuluPrintJobURL   string
	PrintTemplatePath string
	// base64 AES-256 key; print job records are stored sealed when set
	EncryptionKey string

	MaxUploadBytes int64
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := strings.TrimRight(getEnv("HOST", "http://localhost:8080"), "/")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// api.example.com also serves https://example.com and https://www.example.com
	if h := hostname(host); h != "" && h != "localhost" {
		parts := strings.Split(h, ".")
		if len(parts) >= 3 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/inkwell?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		Host:           host,
		AllowedHost:    allowedHost,
		Environment:    env,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: allowedOrigins,

		StorageDriver:       strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		StorageDir:          getEnv("STORAGE_DIR", "./storage/public"),
		ImageSourceDir:      getEnv("IMAGE_SOURCE_DIR", "./storage/public"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Region:            getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:       getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL:     getEnv("S3_PUBLIC_BASE_URL", ""),
		S3PathStyle:         getBool("S3_PATH_STYLE", false),

		LuluClientKey:     getEnv("LULU_CLIENT_KEY", ""),
		LuluClientSecret:  getEnv("LULU_CLIENT_SECRET", ""),
		LuluAuthURL:       getEnv("LULU_AUTH_URL", "https://api.sandbox.lulu.com/auth/realms/glasstree/protocol/openid-connect/token"),
		LuluPrintJobURL:   getEnv("LULU_PRINT_JOB_URL", "https://api.sandbox.lulu.com/print-jobs/"),
		PrintTemplatePath: getEnv("PRINT_TEMPLATE_PATH", ""),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),

		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 32<<20),
	}
}

// StorageBaseURL is the public URL the local storage tree is served under.
func (c *Config) StorageBaseURL() string {
	return c.Host + "/storage"
}

func hostname(u string) string {
	for _, prefix := range []string{"https://", "http://"} {
		u = strings.TrimPrefix(u, prefix)
	}
	if idx := strings.Index(u, "/"); idx != -1 {
		u = u[:idx]
	}
	if idx := strings.Index(u, ":"); idx != -1 {
		u = u[:idx]
	}
	return strings.TrimSpace(u)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

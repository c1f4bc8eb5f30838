package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string
	JWTSecret      string
	JWTTTL         time.Duration
	AuthRequired   bool // enforce role tokens on the API routes
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	EmailFromName string

	Location             *time.Location // campus time zone for access dates
	VisitorSweepInterval time.Duration
	PersonCacheTTL       time.Duration
}

func Load() (*Config, error) {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	var allowedHost string
	if env == "production" {
		allowedHost = hostname(getEnv("HOST", ""))
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")
	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontendURL}
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "America/Bogota"))
	if err != nil {
		return nil, err
	}
	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "12h"))
	if err != nil {
		return nil, err
	}
	sweep, err := time.ParseDuration(getEnv("VISITOR_SWEEP_INTERVAL", "24h"))
	if err != nil {
		return nil, err
	}
	cacheTTL, err := time.ParseDuration(getEnv("PERSON_CACHE_TTL", "5m"))
	if err != nil {
		return nil, err
	}
	emailPort, err := strconv.Atoi(getEnv("EMAIL_PORT", "587"))
	if err != nil {
		return nil, err
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/registro_huellas")),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/registro_huellas?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTTTL:         jwtTTL,
		AuthRequired:   getEnv("AUTH_REQUIRED", "false") == "true",
		Port:           getEnv("PORT", "5000"),
		FrontendURL:    frontendURL,
		AllowedOrigins: allowedOrigins,
		AllowedHost:    allowedHost,
		Environment:    env,

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		EmailHost:     getEnv("EMAIL_HOST", ""),
		EmailPort:     emailPort,
		EmailUser:     getEnv("EMAIL_USER", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Registro de Huellas"),

		Location:             loc,
		VisitorSweepInterval: sweep,
		PersonCacheTTL:       cacheTTL,
	}, nil
}

// hostname strips scheme, path and port from a URL-ish HOST value.
func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
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

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// EmailEnabled reports whether SMTP credentials are configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailHost != "" && c.EmailUser != ""
}

// CloudinaryEnabled reports whether photos go to Cloudinary.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

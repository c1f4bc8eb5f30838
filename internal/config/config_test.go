package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "APP_TIMEZONE", "ALLOWED_ORIGINS", "FRONTEND_URL",
		"VISITOR_SWEEP_INTERVAL", "AUTH_REQUIRED", "MONGODB_URI", "MONGO_URI"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.Location.String() != "America/Bogota" {
		t.Errorf("Location = %v", cfg.Location)
	}
	if cfg.VisitorSweepInterval != 24*time.Hour {
		t.Errorf("VisitorSweepInterval = %v", cfg.VisitorSweepInterval)
	}
	if cfg.AuthRequired || cfg.IsProduction() {
		t.Errorf("AuthRequired=%v IsProduction=%v, want both false", cfg.AuthRequired, cfg.IsProduction())
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.AllowedHost != "" {
		t.Errorf("AllowedHost = %q outside production", cfg.AllowedHost)
	}
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.ucatolica.edu.co:443/v1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MONGO_URI", "mongodb://db/huellas")
	t.Setenv("MONGODB_URI", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IsProduction() {
		t.Fatal("IsProduction() = false")
	}
	if cfg.AllowedHost != "api.ucatolica.edu.co" {
		t.Errorf("AllowedHost = %q", cfg.AllowedHost)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MongoURI != "mongodb://db/huellas" {
		t.Errorf("MongoURI = %q", cfg.MongoURI)
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted an unknown time zone")
	}
}

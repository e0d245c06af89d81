package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.API.Port)
	}
	if cfg.CV.RateLimitPerMinute != 10 {
		t.Fatalf("expected default rate limit 10, got %d", cfg.CV.RateLimitPerMinute)
	}
	if cfg.MinIO.Enabled {
		t.Fatalf("minio should be disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("CV_WEBSITE_URL", "https://me.example.com")
	t.Setenv("CV_RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.API.Port)
	}
	if cfg.CV.WebsiteURL != "https://me.example.com" {
		t.Fatalf("unexpected website url %q", cfg.CV.WebsiteURL)
	}
	if cfg.CV.RateLimitPerMinute != 0 {
		t.Fatalf("expected rate limit disabled, got %d", cfg.CV.RateLimitPerMinute)
	}
	origins := cfg.API.Origins()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestLoadRejectsBadWebsiteURL(t *testing.T) {
	t.Setenv("CV_WEBSITE_URL", "me.example.com")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for website url without scheme")
	}
}

func TestLoadRequiresMinIOCredentialsWhenEnabled(t *testing.T) {
	t.Setenv("MINIO_ENABLED", "true")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when minio is enabled without credentials")
	}
}

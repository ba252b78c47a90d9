package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
basePath: "animals/"
thumbnailWidth: 320
database:
  type: sqlite
  connectionString: "/tmp/pictures.sqlite"
cache:
  redisAddress: "localhost:6379"
  ttl: 45s
imageSource:
  timeout: 20s
  connectTimeout: 5s
  urls:
    cat: "http://cats.local/cat"`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.BasePath != "/animals" {
		t.Errorf("Expected normalized base path '/animals', got '%s'", config.BasePath)
	}
	if config.ThumbnailWidth != 320 {
		t.Errorf("Expected thumbnailWidth 320, got %d", config.ThumbnailWidth)
	}
	if config.Database.ConnectionString != "/tmp/pictures.sqlite" {
		t.Errorf("Expected connectionString '/tmp/pictures.sqlite', got '%s'", config.Database.ConnectionString)
	}
	if config.Cache.RedisAddress != "localhost:6379" || config.Cache.TTL != 45*time.Second {
		t.Errorf("Unexpected cache config: %+v", config.Cache)
	}
	if config.ImageSource.Timeout != 20*time.Second || config.ImageSource.ConnectTimeout != 5*time.Second {
		t.Errorf("Unexpected image source timeouts: %+v", config.ImageSource)
	}
	if got := config.ImageSource.URLs["cat"]; got != "http://cats.local/cat" {
		t.Errorf("Expected overridden cat url, got '%s'", got)
	}
	if config.ImageSource.URLs["dog"] == "" || config.ImageSource.URLs["bear"] == "" {
		t.Errorf("Expected default dog/bear urls to be kept, got %v", config.ImageSource.URLs)
	}
	if config.ImageSource.UserAgent == "" {
		t.Error("Expected default user agent to be kept")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"connect timeout not shorter": "imageSource:\n  timeout: 5s\n  connectTimeout: 5s",
		"unknown animal url":          "imageSource:\n  urls:\n    fox: http://fox.local",
		"thumbnail too wide":          "thumbnailWidth: 5000",
		"empty database type":         "database:\n  type: \"\"",
		"malformed yaml":              "port: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Fatalf("Expected error for %s, got nil", name)
			}
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if config.Database.ConnectionString != "data/app.sqlite" {
		t.Errorf("unexpected default database path %q", config.Database.ConnectionString)
	}
	if config.BasePath != "" {
		t.Errorf("expected empty (auto-detected) base path, got %q", config.BasePath)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"APP_DB_PATH":   "/var/lib/pictures.sqlite",
		"APP_BASE_PATH": "/mounted/",
		"PORT":          "8181",
		"REDIS_ADDRESS": "redis:6379",
	}
	config := DefaultConfig()
	if err := config.ApplyEnv(func(key string) string { return env[key] }); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if config.Database.ConnectionString != "/var/lib/pictures.sqlite" {
		t.Errorf("APP_DB_PATH not applied: %q", config.Database.ConnectionString)
	}
	if config.BasePath != "/mounted" {
		t.Errorf("APP_BASE_PATH not applied/normalized: %q", config.BasePath)
	}
	if config.Port != 8181 {
		t.Errorf("PORT not applied: %d", config.Port)
	}
	if config.Cache.RedisAddress != "redis:6379" {
		t.Errorf("REDIS_ADDRESS not applied: %q", config.Cache.RedisAddress)
	}

	bad := DefaultConfig()
	if err := bad.ApplyEnv(func(key string) string {
		if key == "PORT" {
			return "eighty"
		}
		return ""
	}); err == nil {
		t.Error("expected error for non-numeric PORT")
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"/":       "",
		"app":     "/app",
		"/app/":   "/app",
		"//a/b//": "/a/b",
		"  /x  ":  "/x",
	}
	for in, want := range tests {
		if got := NormalizeBasePath(in); got != want {
			t.Errorf("NormalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

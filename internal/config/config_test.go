package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "5001" {
		t.Errorf("Expected default port 5001, got %q", cfg.Port)
	}
	if cfg.HistoryBackend != BackendMemory {
		t.Errorf("Expected default memory backend, got %q", cfg.HistoryBackend)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HISTORY_BACKEND", "SQLite")
	t.Setenv("DB_PATH", "/tmp/test-polls.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %q", cfg.Port)
	}
	// Backend selector is case-insensitive.
	if cfg.HistoryBackend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %q", cfg.HistoryBackend)
	}
	if cfg.DBPath != "/tmp/test-polls.db" {
		t.Errorf("Unexpected DB path %q", cfg.DBPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory backend", Config{Port: "5001", HistoryBackend: BackendMemory}, false},
		{"sqlite with path", Config{Port: "5001", HistoryBackend: BackendSQLite, DBPath: "x.db"}, false},
		{"redis with url", Config{Port: "5001", HistoryBackend: BackendRedis, RedisURL: "redis://localhost"}, false},
		{"empty port", Config{HistoryBackend: BackendMemory}, true},
		{"sqlite without path", Config{Port: "5001", HistoryBackend: BackendSQLite}, true},
		{"redis without url", Config{Port: "5001", HistoryBackend: BackendRedis}, true},
		{"unknown backend", Config{Port: "5001", HistoryBackend: "mongodb"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://polls.example.com", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.url}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

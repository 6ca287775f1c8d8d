package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:       "./data/test.db",
		RedisAddr:    "localhost:6379",
		Port:         "8080",
		BaseUrl:      "https://vinted.example.com",
		WorkerCount:  5,
		APIAccessKey: "test-key",
		ProxyURL:     "http://proxy.example.com:3128",
		Timezone:     "UTC",
		Debug:        true,
		Version:      "test-version",
	}

	if cfg.DBPath != "./data/test.db" {
		t.Errorf("Expected DB path './data/test.db', got '%s'", cfg.DBPath)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis addr 'localhost:6379', got '%s'", cfg.RedisAddr)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://vinted.example.com" {
		t.Errorf("Expected base URL 'https://vinted.example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.ProxyURL != "http://proxy.example.com:3128" {
		t.Errorf("Expected proxy URL 'http://proxy.example.com:3128', got '%s'", cfg.ProxyURL)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}

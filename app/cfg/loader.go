package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version == "" {
		return "unknown"
	}
	return Version
}

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/vinted_notifications.db" description:"Path to the SQLite database file"`
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the country lookup cache (optional, in-process cache is used when unset)"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://vinted.example.com)"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for search polling"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	ProxyURL     string `long:"proxy-url" env:"PROXY_URL" description:"HTTP proxy URL for upstream requests (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		RedisAddr:    raw.RedisAddr,
		Port:         raw.Port,
		BaseUrl:      raw.BaseUrl,
		WorkerCount:  raw.WorkerCount,
		APIAccessKey: raw.APIAccessKey,
		ProxyURL:     raw.ProxyURL,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HueConfig holds the lighting bridge connection settings
type HueConfig struct {
	// BridgeAddr is the host (and optional port) of the Hue bridge
	BridgeAddr string
	// Username is the bridge API credential
	Username string
	// LightIDs are the bridge-local IDs of the lights to drive
	LightIDs []string
}

// VideoConfig holds the camera/stream capture settings
type VideoConfig struct {
	// Source is a local device index ("0") or a network stream URL
	Source string
	// MaxSessionAge forces a handle reopen after this duration even if
	// reads still succeed
	MaxSessionAge time.Duration
}

// AuthConfig holds the caller-verification settings for /set-color
type AuthConfig struct {
	// Audience is the expected OIDC token audience (the service URL)
	Audience string
	// AllowedCallers lists the service account emails permitted to call
	AllowedCallers []string
}

// TasksConfig holds the Cloud Tasks enqueue settings
type TasksConfig struct {
	Project        string
	Location       string
	Queue          string
	WorkerURL      string
	ServiceAccount string
}

// Config represents the service configuration
type Config struct {
	ServerPort int
	LogLevel   string
	LogPretty  bool

	Hue   HueConfig
	Video VideoConfig
	Auth  AuthConfig
	Tasks TasksConfig
}

// Load reads configuration from the optional config file and the
// environment. Environment variable names follow the deployed service
// (HUE_BRIDGE_IP, HUE_USERNAME, HUE_LIGHT_IDS, VIDEO_SOURCE, ...).
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()

	v.SetDefault("server_port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("video.max_session_age", "10m")
	v.SetDefault("tasks.location", "us-central1")
	v.SetDefault("tasks.queue", "color-changes")

	bindings := map[string]string{
		"server_port":           "PORT",
		"log_level":             "LOG_LEVEL",
		"hue.bridge_addr":       "HUE_BRIDGE_IP",
		"hue.username":          "HUE_USERNAME",
		"hue.light_ids":         "HUE_LIGHT_IDS",
		"video.source":          "VIDEO_SOURCE",
		"video.max_session_age": "VIDEO_MAX_SESSION_AGE",
		"auth.audience":         "SERVICE_AUDIENCE",
		"auth.allowed_callers":  "ALLOWED_CALLERS",
		"tasks.project":         "GOOGLE_CLOUD_PROJECT",
		"tasks.location":        "TASKS_LOCATION",
		"tasks.queue":           "TASKS_QUEUE",
		"tasks.worker_url":      "TASKS_WORKER_URL",
		"tasks.service_account": "TASK_SERVICE_ACCOUNT_EMAIL",
	}
	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envVar, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	maxAge, err := time.ParseDuration(v.GetString("video.max_session_age"))
	if err != nil {
		return nil, fmt.Errorf("invalid video.max_session_age: %w", err)
	}

	cfg := &Config{
		ServerPort: v.GetInt("server_port"),
		LogLevel:   v.GetString("log_level"),
		LogPretty:  v.GetBool("log_pretty"),
		Hue: HueConfig{
			BridgeAddr: v.GetString("hue.bridge_addr"),
			Username:   v.GetString("hue.username"),
			LightIDs:   splitList(v.GetString("hue.light_ids")),
		},
		Video: VideoConfig{
			Source:        v.GetString("video.source"),
			MaxSessionAge: maxAge,
		},
		Auth: AuthConfig{
			Audience:       v.GetString("auth.audience"),
			AllowedCallers: splitList(v.GetString("auth.allowed_callers")),
		},
		Tasks: TasksConfig{
			Project:        v.GetString("tasks.project"),
			Location:       v.GetString("tasks.location"),
			Queue:          v.GetString("tasks.queue"),
			WorkerURL:      v.GetString("tasks.worker_url"),
			ServiceAccount: v.GetString("tasks.service_account"),
		},
	}

	return cfg, nil
}

// HueEnabled reports whether a lighting bridge is configured
func (c *Config) HueEnabled() bool {
	return c.Hue.BridgeAddr != "" && c.Hue.Username != "" && len(c.Hue.LightIDs) > 0
}

// VideoEnabled reports whether a capture source is configured
func (c *Config) VideoEnabled() bool {
	return c.Video.Source != ""
}

// AuthEnabled reports whether caller verification is configured
func (c *Config) AuthEnabled() bool {
	return c.Auth.Audience != ""
}

// TasksEnabled reports whether the Cloud Tasks enqueuer is configured
func (c *Config) TasksEnabled() bool {
	return c.Tasks.Project != "" && c.Tasks.WorkerURL != ""
}

// splitList splits a comma-separated env value, trimming whitespace and
// dropping empty entries
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config loads the battle server's YAML configuration, following
// the Default*()/Load*() pattern of udisondev/la2go internal/config
// (LoginServer/DefaultLoginServer/LoadLoginServer): a struct of sensible
// defaults, overlaid with whatever a YAML file on disk provides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath is the environment variable that overrides the default config
// file path (spec §6 Configuration).
const EnvPath = "QUIZBATTLE_CONFIG"

const defaultConfigPath = "config.yaml"

// Server is the complete configuration for the battle server process.
type Server struct {
	// Network
	WSPort int    `yaml:"ws_port"`
	WSPath string `yaml:"ws_path"`

	// Transport tuning (internal/transport)
	SendQueueSize int           `yaml:"send_queue_size"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`

	// Session lifecycle (internal/registry)
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`

	// Match pacing (internal/match)
	QuestionTimeSec int `yaml:"question_time_sec"`
	TotalQuestions  int `yaml:"total_questions"`

	// Matchmaking (internal/matchmaking)
	ConfirmTimeoutSec int `yaml:"confirm_timeout_sec"`
	MMRWindow         int `yaml:"mmr_window"`

	// Lobby (internal/lobby)
	LobbyTTLMin int `yaml:"lobby_ttl_min"`

	// Damage model (internal/model, internal/match)
	DamagePerAnswer int `yaml:"damage_per_answer"`
	DamageOnTimeout int `yaml:"damage_on_timeout"`

	// Rating (internal/settlement)
	RatingK int `yaml:"rating_k"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Database
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the Store
// (spec §6 Store), following la2go's DatabaseConfig/DSN shape.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns int32 `yaml:"max_conns"`
}

// DSN returns the PostgreSQL connection string for pgxpool.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
	if d.MaxConns > 0 {
		return base + fmt.Sprintf("&pool_max_conns=%d", d.MaxConns)
	}
	return base
}

// QuestionTime returns the per-question answer window as a duration.
func (s Server) QuestionTime() time.Duration {
	return time.Duration(s.QuestionTimeSec) * time.Second
}

// ConfirmTimeout returns the matchmaking confirmation deadline.
func (s Server) ConfirmTimeout() time.Duration {
	return time.Duration(s.ConfirmTimeoutSec) * time.Second
}

// IdleTimeout returns the registry's session staleness threshold.
func (s Server) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

// LobbyTTL returns the lobby expiry window.
func (s Server) LobbyTTL() time.Duration {
	return time.Duration(s.LobbyTTLMin) * time.Minute
}

// Default returns Server config with the defaults from spec §6.
func Default() Server {
	return Server{
		WSPort:            8080,
		WSPath:            "/api/quiz/battle",
		SendQueueSize:     64,
		WriteTimeout:      5 * time.Second,
		IdleTimeoutSec:    60,
		QuestionTimeSec:   10,
		TotalQuestions:    5,
		ConfirmTimeoutSec: 30,
		MMRWindow:         200,
		LobbyTTLMin:       30,
		DamagePerAnswer:   10,
		DamageOnTimeout:   10,
		RatingK:           32,
		LogLevel:          "info",
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "quizbattle",
			Password: "quizbattle",
			DBName:  "quizbattle",
			SSLMode: "disable",
		},
	}
}

// Load reads Server config from a YAML file, overlaying it onto Default().
// If the file doesn't exist, the defaults are returned unchanged. The path
// argument is used unless EnvPath is set in the environment, in which case
// it takes precedence.
func Load(path string) (Server, error) {
	if envPath := os.Getenv(EnvPath); envPath != "" {
		path = envPath
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// redactedDSN is used only for log lines, never returned to a client.
func (d DatabaseConfig) redactedDSN() string {
	dsn := d.DSN()
	if idx := strings.Index(dsn, ":"+d.Password+"@"); idx >= 0 {
		return dsn[:idx] + ":***@" + dsn[idx+len(d.Password)+2:]
	}
	return dsn
}

// LogSafe returns the connection string with the password masked, for logging.
func (d DatabaseConfig) LogSafe() string { return d.redactedDSN() }

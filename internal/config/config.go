// Package config loads the non-secret YAML configuration and the
// secret environment variables. Secrets never live in the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envIMAPUser = "MAILTIDE_IMAP_USER"
	envIMAPPass = "MAILTIDE_IMAP_PASS"
)

// Config holds non-secret configuration loaded from YAML.
type Config struct {
	Servers      []Server `yaml:"servers"`
	Split        Split    `yaml:"split"`
	Sync         Sync     `yaml:"sync"`
	MetadataFile string   `yaml:"metadata_file"`
}

// Server describes one logical mail server.
type Server struct {
	Name         string `yaml:"name"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Transport    string `yaml:"transport"`
	Inbox        string `yaml:"inbox"`
	StreamWindow int    `yaml:"stream_window"`
}

// Split configures the splitting pipeline.
type Split struct {
	Rules                []SplitRule `yaml:"rules"`
	AllowUnscopedExpunge bool        `yaml:"allow_unscoped_expunge"`
}

// SplitRule routes messages whose headers match into destinations, or
// discards them.
type SplitRule struct {
	Name            string   `yaml:"name"`
	Destinations    []string `yaml:"destinations"`
	Discard         bool     `yaml:"discard"`
	SenderRegex     []string `yaml:"sender_regex"`
	RecipientsRegex []string `yaml:"recipients_regex"`
	SubjectRegex    []string `yaml:"subject_regex"`
	ListIDRegex     []string `yaml:"list_id_regex"`
}

// Sync configures session upkeep.
type Sync struct {
	KeepaliveEvery string `yaml:"keepalive_every"`
	IdleAfter      string `yaml:"idle_after"`
}

// KeepaliveDurations returns the parsed keepalive sweep interval and
// idle threshold, applying defaults for unset values.
func (s Sync) KeepaliveDurations() (every, idleAfter time.Duration, err error) {
	every, err = parseDurationDefault(s.KeepaliveEvery, time.Minute)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid keepalive_every: %w", err)
	}
	idleAfter, err = parseDurationDefault(s.IdleAfter, 5*time.Minute)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid idle_after: %w", err)
	}
	return every, idleAfter, nil
}

func parseDurationDefault(value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	dur, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if dur <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return dur, nil
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate performs basic validation on non-secret config.
func Validate(cfg Config) error {
	if len(cfg.Servers) == 0 {
		return errors.New("config must define at least one server")
	}
	seen := map[string]bool{}
	for i, srv := range cfg.Servers {
		if strings.TrimSpace(srv.Name) == "" {
			return fmt.Errorf("server %d must define a name", i+1)
		}
		if seen[srv.Name] {
			return fmt.Errorf("server %q defined twice", srv.Name)
		}
		seen[srv.Name] = true
		if strings.TrimSpace(srv.Host) == "" {
			return fmt.Errorf("server %q must define a host", srv.Name)
		}
		if srv.Port <= 0 || srv.Port > 65535 {
			return fmt.Errorf("server %q has invalid port %d", srv.Name, srv.Port)
		}
		switch srv.Transport {
		case "", "plain", "tls", "starttls":
		default:
			return fmt.Errorf("server %q has unknown transport %q", srv.Name, srv.Transport)
		}
	}
	for _, rule := range cfg.Split.Rules {
		if !rule.Discard && len(rule.Destinations) == 0 {
			return fmt.Errorf("split rule %q must define destinations or discard", rule.Name)
		}
		if rule.Discard && len(rule.Destinations) > 0 {
			return fmt.Errorf("split rule %q cannot both discard and deliver", rule.Name)
		}
	}
	return nil
}

// EnvCredentials returns the fallback credentials from the
// environment; both values are empty when unset.
func EnvCredentials() (user, pass string) {
	return strings.TrimSpace(os.Getenv(envIMAPUser)), strings.TrimSpace(os.Getenv(envIMAPPass))
}

// Summary returns a concise config summary for validation runs.
func Summary(cfg Config) string {
	return fmt.Sprintf(
		"Config summary\n"+
			"- servers: %d\n"+
			"- split rules: %d\n"+
			"- metadata file: %s",
		len(cfg.Servers),
		len(cfg.Split.Rules),
		defaultIfEmpty(cfg.MetadataFile, "(not set)"),
	)
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

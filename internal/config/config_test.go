package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/config"
)

const sampleYAML = `
servers:
  - name: personal
    host: imap.example.com
    port: 993
    transport: tls
    inbox: INBOX
  - name: work
    host: mail.corp.example
    port: 143
    transport: starttls
    stream_window: 65536
split:
  allow_unscoped_expunge: true
  rules:
    - name: dev-list
      destinations: [Lists/Dev]
      list_id_regex: ['dev\.lists']
    - name: spam
      discard: true
      subject_regex: ['\bwin a prize\b']
sync:
  keepalive_every: 2m
  idle_after: 10m
metadata_file: /var/lib/mailtide/mailboxinfo.json
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "personal", cfg.Servers[0].Name)
	assert.Equal(t, 993, cfg.Servers[0].Port)
	assert.Equal(t, "starttls", cfg.Servers[1].Transport)
	assert.Equal(t, 65536, cfg.Servers[1].StreamWindow)

	assert.True(t, cfg.Split.AllowUnscopedExpunge)
	require.Len(t, cfg.Split.Rules, 2)
	assert.Equal(t, []string{"Lists/Dev"}, cfg.Split.Rules[0].Destinations)
	assert.True(t, cfg.Split.Rules[1].Discard)

	every, idleAfter, err := cfg.Sync.KeepaliveDurations()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, every)
	assert.Equal(t, 10*time.Minute, idleAfter)
}

func TestKeepaliveDefaults(t *testing.T) {
	every, idleAfter, err := config.Sync{}.KeepaliveDurations()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, every)
	assert.Equal(t, 5*time.Minute, idleAfter)

	_, _, err = config.Sync{KeepaliveEvery: "-3m"}.KeepaliveDurations()
	assert.Error(t, err)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "no servers", cfg: config.Config{}},
		{
			name: "duplicate server names",
			cfg: config.Config{Servers: []config.Server{
				{Name: "a", Host: "h", Port: 993},
				{Name: "a", Host: "h2", Port: 993},
			}},
		},
		{
			name: "missing host",
			cfg: config.Config{Servers: []config.Server{
				{Name: "a", Port: 993},
			}},
		},
		{
			name: "bad port",
			cfg: config.Config{Servers: []config.Server{
				{Name: "a", Host: "h", Port: 70000},
			}},
		},
		{
			name: "unknown transport",
			cfg: config.Config{Servers: []config.Server{
				{Name: "a", Host: "h", Port: 993, Transport: "carrier-pigeon"},
			}},
		},
		{
			name: "rule without destination or discard",
			cfg: config.Config{
				Servers: []config.Server{{Name: "a", Host: "h", Port: 993}},
				Split: config.Split{Rules: []config.SplitRule{
					{Name: "aimless"},
				}},
			},
		},
		{
			name: "rule both discards and delivers",
			cfg: config.Config{
				Servers: []config.Server{{Name: "a", Host: "h", Port: 993}},
				Split: config.Split{Rules: []config.SplitRule{
					{Name: "confused", Discard: true, Destinations: []string{"X"}},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, config.Validate(tt.cfg))
		})
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("MAILTIDE_IMAP_USER", " alice ")
	t.Setenv("MAILTIDE_IMAP_PASS", "s3cret")

	user, pass := config.EnvCredentials()
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", pass)
}

func TestSummary(t *testing.T) {
	cfg := config.Config{
		Servers: []config.Server{{Name: "a", Host: "h", Port: 993}},
	}
	summary := config.Summary(cfg)
	assert.Contains(t, summary, "servers: 1")
	assert.Contains(t, summary, "(not set)")
}

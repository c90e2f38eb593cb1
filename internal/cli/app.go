// Package cli wires the command-line surface: config loading, logging,
// credential resolution, and the commands built on the protocol engine.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mailtide/mailtide/internal/config"
	"github.com/mailtide/mailtide/internal/creds"
	"github.com/mailtide/mailtide/internal/imap"
	"github.com/mailtide/mailtide/internal/metadata"
)

const (
	configEnvVar    = "MAILTIDE_CONFIG"
	defaultEnvFile  = ".env"
	defaultMetadata = "mailboxinfo.json"
)

// New builds the mailtide command-line application.
func New() *cli.App {
	return &cli.App{
		Name:  "mailtide",
		Usage: "keep local mailbox state in step with remote IMAP servers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				EnvVars: []string{configEnvVar},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			syncCommand(),
			splitCommand(),
			mailboxesCommand(),
			fetchCommand(),
			loginCommand(),
		},
	}
}

// env holds the shared collaborators every command needs.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *imap.Registry
	store    metadata.Store
}

// setup loads .env and the YAML config, then builds the logger, the
// credential chain, the session registry, and the metadata store.
func setup(c *cli.Context) (*env, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfgPath := strings.TrimSpace(c.String("config"))
	if cfgPath == "" {
		return nil, errors.New("config path is required via --config or " + configEnvVar)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	user, pass := config.EnvCredentials()
	provider := creds.Chain{
		creds.NewKeyringProvider(),
		&creds.EnvProvider{User: user, Secret: pass},
	}

	every, idleAfter, err := cfg.Sync.KeepaliveDurations()
	if err != nil {
		return nil, err
	}
	registry, err := imap.NewRegistry(
		imap.WithLogger(logger),
		imap.WithCredentials(provider),
		imap.WithKeepalive(every, idleAfter),
	)
	if err != nil {
		return nil, err
	}

	metadataPath := cfg.MetadataFile
	if strings.TrimSpace(metadataPath) == "" {
		metadataPath = defaultMetadata
	}
	store, err := metadata.NewFileStore(metadataPath)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, registry: registry, store: store}, nil
}

// servers returns the configured servers, narrowed to --server when set.
func (e *env) servers(c *cli.Context) ([]config.Server, error) {
	name := strings.TrimSpace(c.String("server"))
	if name == "" {
		return e.cfg.Servers, nil
	}
	for _, srv := range e.cfg.Servers {
		if srv.Name == name {
			return []config.Server{srv}, nil
		}
	}
	return nil, errors.Errorf("unknown server %q", name)
}

func serverConfig(srv config.Server) imap.ServerConfig {
	transport := imap.Transport(srv.Transport)
	if transport == "" {
		transport = imap.TransportTLS
	}
	return imap.ServerConfig{
		Name:         srv.Name,
		Host:         srv.Host,
		Port:         srv.Port,
		Transport:    transport,
		StreamWindow: srv.StreamWindow,
	}
}

// scopedStore namespaces one server's mailboxes inside the shared
// metadata store, so two servers with the same inbox name do not
// clobber each other's records.
type scopedStore struct {
	metadata.Store
	prefix string
}

func (s scopedStore) Info(mailbox string) (metadata.Info, bool, error) {
	return s.Store.Info(s.prefix + mailbox)
}

func (s scopedStore) SetInfo(mailbox string, info metadata.Info) error {
	return s.Store.SetInfo(s.prefix+mailbox, info)
}

func (e *env) serverStore(srv config.Server) metadata.Store {
	return scopedStore{Store: e.store, prefix: srv.Name + "/"}
}

func inboxName(srv config.Server) string {
	if strings.TrimSpace(srv.Inbox) == "" {
		return "INBOX"
	}
	return srv.Inbox
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}

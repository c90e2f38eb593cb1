// Package creds supplies server credentials to the session layer. The
// engine only depends on the Provider interface; the backing stores are
// the system keyring and, as a fallback, environment variables.
package creds

import (
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

// Provider looks up and invalidates credentials for a host. Lookup
// tries each candidate port in order and reports the first hit.
type Provider interface {
	Lookup(host string, ports []int) (user, secret string, ok bool)
	Forget(host string, port int)
}

const serviceName = "mailtide"

// KeyringProvider stores credentials in the system keyring, keyed by
// "host:port". The item payload is "user\nsecret".
type KeyringProvider struct {
	// FileDir overrides the file-backend directory, used by tests.
	FileDir string

	open func() (keyring.Keyring, error)
}

// NewKeyringProvider returns a keyring-backed provider.
func NewKeyringProvider() *KeyringProvider {
	p := &KeyringProvider{}
	p.open = p.openRing
	return p
}

func (p *KeyringProvider) openRing() (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailtide/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailtide-file-key"),
		KeychainTrustApplication: true,
	}
	if p.FileDir != "" {
		cfg.FileDir = p.FileDir
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return ring, nil
}

// Lookup returns the stored credentials for the first host:port key
// that exists.
func (p *KeyringProvider) Lookup(host string, ports []int) (string, string, bool) {
	ring, err := p.open()
	if err != nil {
		return "", "", false
	}
	for _, port := range ports {
		item, err := ring.Get(credentialKey(host, port))
		if err != nil {
			continue
		}
		user, secret, found := strings.Cut(string(item.Data), "\n")
		if !found {
			continue
		}
		return user, secret, true
	}
	return "", "", false
}

// Store saves credentials for a host/port pair.
func (p *KeyringProvider) Store(host string, port int, user, secret string) error {
	ring, err := p.open()
	if err != nil {
		return err
	}
	err = ring.Set(keyring.Item{
		Key:  credentialKey(host, port),
		Data: []byte(user + "\n" + secret),
	})
	return errors.Wrapf(err, "storing credentials for %s", credentialKey(host, port))
}

// Forget drops the cached credentials for a host/port pair.
func (p *KeyringProvider) Forget(host string, port int) {
	ring, err := p.open()
	if err != nil {
		return
	}
	_ = ring.Remove(credentialKey(host, port))
}

func credentialKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// EnvProvider serves one fixed user/secret pair, typically loaded from
// MAILTIDE_IMAP_USER and MAILTIDE_IMAP_PASS. Forget is a no-op since
// there is nothing cached to invalidate.
type EnvProvider struct {
	User   string
	Secret string
}

func (p *EnvProvider) Lookup(string, []int) (string, string, bool) {
	if p.User == "" || p.Secret == "" {
		return "", "", false
	}
	return p.User, p.Secret, true
}

func (p *EnvProvider) Forget(string, int) {}

// Chain consults providers in order; the first hit wins and Forget fans
// out to all of them.
type Chain []Provider

func (c Chain) Lookup(host string, ports []int) (string, string, bool) {
	for _, p := range c {
		if user, secret, ok := p.Lookup(host, ports); ok {
			return user, secret, ok
		}
	}
	return "", "", false
}

func (c Chain) Forget(host string, port int) {
	for _, p := range c {
		p.Forget(host, port)
	}
}

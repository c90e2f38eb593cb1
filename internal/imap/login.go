package imap

import (
	"context"
	"encoding/base64"

	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/creds"
	"github.com/mailtide/mailtide/internal/wire"
)

// Fallback ports consulted when looking up credentials for a host.
var credentialPorts = []int{993, 143}

// login obtains credentials and authenticates the session. SASL PLAIN
// with an inline initial response is preferred when the server supports
// it; otherwise a plain LOGIN with quoted arguments is issued. A
// rejected login invalidates the cached credentials for this host/port.
func (s *Session) login(ctx context.Context, provider creds.Provider) error {
	ports := append([]int{s.port}, credentialPorts...)
	user, secret, found := provider.Lookup(s.host, ports)
	if !found {
		return &AuthError{Server: s.server, Err: errors.New("no credentials available")}
	}

	var (
		ok   bool
		resp *Response
		err  error
	)
	if s.caps["AUTH=PLAIN"] && s.caps["SASL-IR"] {
		client := sasl.NewPlainClient("", user, secret)
		mech, initial, startErr := client.Start()
		if startErr != nil {
			return &AuthError{Server: s.server, Err: startErr}
		}
		ok, resp, err = s.runLocked(ctx, "AUTHENTICATE %s %s",
			mech, base64.StdEncoding.EncodeToString(initial))
	} else {
		ok, resp, err = s.runLocked(ctx, "LOGIN %s %s", wire.Quote(user), wire.Quote(secret))
	}
	if err != nil {
		return err
	}
	if !ok {
		provider.Forget(s.host, s.port)
		return &AuthError{
			Server: s.server,
			Err:    &ProtocolError{Status: resp.Status, Text: resp.Text},
		}
	}
	return nil
}

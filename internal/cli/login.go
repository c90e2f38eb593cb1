package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mailtide/mailtide/internal/config"
	"github.com/mailtide/mailtide/internal/creds"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "store a server's credentials in the system keyring",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "configured server to store credentials for", Required: true},
			&cli.StringFlag{Name: "user", Usage: "account user (prompted when omitted)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			servers, err := e.servers(c)
			if err != nil {
				return err
			}
			srv := servers[0]

			user := strings.TrimSpace(c.String("user"))
			envUser, envPass := config.EnvCredentials()
			if user == "" {
				user = envUser
			}
			if user == "" {
				user, err = prompt(c, "user: ")
				if err != nil {
					return err
				}
			}

			pass := envPass
			if pass == "" {
				pass, err = prompt(c, "password: ")
				if err != nil {
					return err
				}
			}
			if user == "" || pass == "" {
				return errors.New("both user and password are required")
			}

			provider := creds.NewKeyringProvider()
			if err := provider.Store(srv.Host, srv.Port, user, pass); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "stored credentials for %s:%d\n", srv.Host, srv.Port)
			return nil
		},
	}
}

func prompt(c *cli.Context, label string) (string, error) {
	fmt.Fprint(c.App.Writer, label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "reading input")
	}
	return strings.TrimSpace(line), nil
}

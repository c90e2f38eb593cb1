package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func mailboxesCommand() *cli.Command {
	return &cli.Command{
		Name:  "mailboxes",
		Usage: "list every mailbox on each configured server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "limit the listing to one configured server"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.registry.CloseAll()

			servers, err := e.servers(c)
			if err != nil {
				return err
			}
			for _, srv := range servers {
				sess, err := e.registry.Open(c.Context, serverConfig(srv))
				if err != nil {
					return err
				}
				infos, err := sess.List(c.Context, "", "*")
				if err != nil {
					return err
				}
				for _, info := range infos {
					line := srv.Name + ": " + info.Name
					if len(info.Attrs) > 0 {
						line += " (" + strings.Join(info.Attrs, " ") + ")"
					}
					fmt.Fprintln(c.App.Writer, line)
				}
			}
			return nil
		},
	}
}

package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mailtide/mailtide/internal/message"
)

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "print one article, whole or reduced to selected body parts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "server to fetch from (defaults to the first configured)"},
			&cli.UintFlag{Name: "uid", Usage: "article UID", Required: true},
			&cli.BoolFlag{Name: "first-part", Usage: "fetch only the first body part"},
			&cli.StringFlag{Name: "type", Usage: "fetch only parts matching this content type pattern, e.g. text/*"},
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
			srv := servers[0]

			sess, err := e.registry.Open(c.Context, serverConfig(srv))
			if err != nil {
				return err
			}
			if _, err := sess.Select(c.Context, inboxName(srv)); err != nil {
				return err
			}

			uid := uint32(c.Uint("uid"))
			if !c.Bool("first-part") && c.String("type") == "" {
				raw, err := sess.FetchWhole(c.Context, uid)
				if err != nil {
					return err
				}
				_, err = c.App.Writer.Write(raw)
				return err
			}

			policy := message.FirstPartOnly()
			if pattern := c.String("type"); pattern != "" {
				policy = message.MatchingType(pattern)
			}

			structure, err := sess.FetchStructure(c.Context, uid)
			if err != nil {
				// No usable part layout; a whole fetch still works.
				e.logger.Warn("body structure unavailable, fetching whole article", "uid", uid, "error", err)
				raw, werr := sess.FetchWhole(c.Context, uid)
				if werr != nil {
					return errors.Wrap(werr, "fetching whole article")
				}
				_, werr = c.App.Writer.Write(raw)
				return werr
			}

			wanted := message.WantedParts(structure, policy)
			raw, err := sess.FetchPartial(c.Context, uid, structure, wanted)
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(raw)
			return err
		},
	}
}

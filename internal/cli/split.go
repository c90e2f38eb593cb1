package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mailtide/mailtide/internal/imap"
	"github.com/mailtide/mailtide/internal/split"
)

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:  "split",
		Usage: "file new inbox messages into destination mailboxes by rule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "limit the split to one configured server"},
			&cli.BoolFlag{Name: "dry-run", Usage: "report intended copies and deletions without performing them"},
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

			classifier, err := split.NewRuleClassifier(e.cfg.Split.Rules)
			if err != nil {
				return err
			}
			pipeline, err := split.NewPipeline(
				split.WithClassifier(classifier),
				split.WithLogger(e.logger),
				split.WithExpungePolicy(imap.ExpungePolicy{
					AllowUnscoped: e.cfg.Split.AllowUnscopedExpunge,
				}),
				split.WithDryRun(c.Bool("dry-run")),
			)
			if err != nil {
				return err
			}

			for _, srv := range servers {
				sess, err := e.registry.Open(c.Context, serverConfig(srv))
				if err != nil {
					return err
				}
				result, err := pipeline.Run(c.Context, sess, inboxName(srv))
				if err != nil {
					return err
				}
				for dest, set := range result.Copied {
					fmt.Fprintf(c.App.Writer, "%s: %s -> %s\n", srv.Name, set, dest)
				}
				for dest, reason := range result.Failed {
					fmt.Fprintf(c.App.Writer, "%s: copy to %s failed: %s\n", srv.Name, dest, reason)
				}
				if result.NotExpunged {
					fmt.Fprintf(c.App.Writer, "%s: originals flagged deleted but not expunged\n", srv.Name)
				}
			}
			return nil
		},
	}
}

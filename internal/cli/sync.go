package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mailtide/mailtide/internal/config"
	"github.com/mailtide/mailtide/internal/reconcile"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "reconcile each server's inbox flags into the local mailbox state",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "limit the sync to one configured server"},
			&cli.BoolFlag{Name: "full", Usage: "refetch the whole mailbox instead of resuming past the stored range"},
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
			e.registry.StartKeepalive(c.Context)

			// Each server has its own session and stream, so the
			// per-server syncs run concurrently.
			g, ctx := errgroup.WithContext(c.Context)
			for _, srv := range servers {
				srv := srv
				g.Go(func() error {
					return errors.Wrapf(e.syncServer(ctx, srv, c.Bool("full")), "syncing %s", srv.Name)
				})
			}
			return g.Wait()
		},
	}
}

// syncServer fetches the inbox flag listing and folds it into the
// stored state. An incremental sync resumes just past the stored active
// range; reconciliation preserves everything below the fetch window.
func (e *env) syncServer(ctx context.Context, srv config.Server, full bool) error {
	sess, err := e.registry.Open(ctx, serverConfig(srv))
	if err != nil {
		return err
	}

	inbox := inboxName(srv)
	if _, err := sess.Select(ctx, inbox); err != nil {
		return err
	}

	store := e.serverStore(srv)
	from := uint32(1)
	if !full {
		info, ok, err := store.Info(inbox)
		if err != nil {
			return err
		}
		if ok && info.ActiveHi > 0 {
			from = info.ActiveHi + 1
		}
	}

	snap, err := sess.FetchFlags(ctx, from)
	if err != nil {
		return err
	}
	if err := reconcile.Apply(snap, store); err != nil {
		return err
	}

	e.logger.Info("synced",
		"server", srv.Name,
		"mailbox", inbox,
		"from", from,
		"fetched", snap.Exists.Count())
	return nil
}

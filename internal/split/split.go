// Package split pulls new messages out of an inbox, classifies them,
// copies them into their destination mailboxes, and removes the
// successfully delivered originals.
package split

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/imap"
	"github.com/mailtide/mailtide/internal/rangeset"
)

// Discard is the destination name meaning "delete without copying".
const Discard = "%discard"

// Classifier decides where a message belongs based on its raw bytes.
// An empty result leaves the message in the inbox.
type Classifier interface {
	Classify(raw []byte) ([]string, error)
}

// Mailer is the slice of session behavior the pipeline drives; it is
// implemented by *imap.Session.
type Mailer interface {
	Select(ctx context.Context, mailbox string) (*imap.SelectData, error)
	FetchFlags(ctx context.Context, from uint32) (*imap.FlagsSnapshot, error)
	FetchHeader(ctx context.Context, uid uint32) ([]byte, error)
	List(ctx context.Context, ref, pattern string) ([]imap.MailboxInfo, error)
	Create(ctx context.Context, mailbox string) error
	Copy(set rangeset.Range, mailbox string) (int, error)
	AwaitOK(ctx context.Context, tag int) (bool, *imap.Response, error)
	Delete(ctx context.Context, set rangeset.Range, policy imap.ExpungePolicy) error
}

// Result reports what one splitting pass did.
type Result struct {
	New         rangeset.Range
	Copied      map[string]rangeset.Range
	Failed      map[string]string
	Deleted     rangeset.Range
	NotExpunged bool
}

// Pipeline runs splitting passes over an inbox.
type Pipeline struct {
	classifier Classifier
	logger     *slog.Logger
	policy     imap.ExpungePolicy
	dryRun     bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClassifier sets the classification collaborator.
func WithClassifier(c Classifier) PipelineOption {
	return func(p *Pipeline) { p.classifier = c }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithExpungePolicy sets the deletion policy applied after delivery.
func WithExpungePolicy(policy imap.ExpungePolicy) PipelineOption {
	return func(p *Pipeline) { p.policy = policy }
}

// WithDryRun makes the pipeline report intended actions without
// copying or deleting anything.
func WithDryRun(dryRun bool) PipelineOption {
	return func(p *Pipeline) { p.dryRun = dryRun }
}

// NewPipeline builds a Pipeline. A classifier and a logger are
// required.
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	var p Pipeline
	for _, opt := range opts {
		opt(&p)
	}
	if p.classifier == nil {
		return nil, errors.New("requires classifier")
	}
	if p.logger == nil {
		return nil, errors.New("requires slogger")
	}
	return &p, nil
}

// Run executes one splitting pass over the inbox. Copies are
// pipelined; each copy's success is judged by its own tag, and only
// UIDs from successful copies are removed from the inbox. Failed
// copies stay put and are picked up again on the next pass.
func (p *Pipeline) Run(ctx context.Context, m Mailer, inbox string) (*Result, error) {
	result := &Result{
		Copied: map[string]rangeset.Range{},
		Failed: map[string]string{},
	}

	if _, err := m.Select(ctx, inbox); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", inbox)
	}
	snap, err := m.FetchFlags(ctx, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "listing flags in %s", inbox)
	}

	// New means never touched: no deleted flag, no read flag.
	result.New = snap.Exists.
		Subtract(snap.Flags[`\DELETED`]).
		Subtract(snap.Flags[`\SEEN`])
	if result.New.Empty() {
		p.logger.Info("no new messages to split", slog.String("inbox", inbox))
		return result, nil
	}

	destinations, discard, err := p.classify(ctx, m, result.New)
	if err != nil {
		return nil, err
	}

	if p.dryRun {
		for dest, set := range destinations {
			p.logger.Info("dry run: would copy",
				slog.String("destination", dest), slog.String("uids", set.String()))
			result.Copied[dest] = set
		}
		if !discard.Empty() {
			p.logger.Info("dry run: would discard", slog.String("uids", discard.String()))
		}
		return result, nil
	}

	if err := p.createMissing(ctx, m, destinations); err != nil {
		return nil, err
	}

	// Pipelined delivery: every copy goes out before any reply is
	// consumed, then each completion is matched to its own tag.
	dests := sortedKeys(destinations)
	tags := make(map[string]int, len(dests))
	for _, dest := range dests {
		tag, err := m.Copy(destinations[dest], dest)
		if err != nil {
			return nil, errors.Wrapf(err, "copying to %s", dest)
		}
		tags[dest] = tag
	}

	var copied rangeset.Range
	for _, dest := range dests {
		ok, resp, err := m.AwaitOK(ctx, tags[dest])
		if err != nil {
			return nil, errors.Wrapf(err, "awaiting copy to %s", dest)
		}
		if !ok {
			p.logger.Warn("copy rejected",
				slog.String("destination", dest), slog.String("status", resp.Text))
			result.Failed[dest] = resp.Text
			continue
		}
		result.Copied[dest] = destinations[dest]
		copied = copied.Union(destinations[dest])
	}

	toDelete := copied.Union(discard)
	if toDelete.Empty() {
		return result, nil
	}
	switch err := m.Delete(ctx, toDelete, p.policy); {
	case errors.Is(err, imap.ErrNotExpunged):
		result.NotExpunged = true
	case err != nil:
		return result, errors.Wrapf(err, "deleting delivered messages in %s", inbox)
	}
	result.Deleted = toDelete

	p.logger.Info("splitting pass complete",
		slog.String("inbox", inbox),
		slog.Int("destinations", len(result.Copied)),
		slog.String("deleted", result.Deleted.String()))
	return result, nil
}

// classify fetches each new message's header bytes and gathers the
// per-destination UID ranges.
func (p *Pipeline) classify(ctx context.Context, m Mailer, newSet rangeset.Range) (map[string]rangeset.Range, rangeset.Range, error) {
	destinations := map[string]rangeset.Range{}
	var discard rangeset.Range

	for _, uid := range newSet.Nums() {
		raw, err := m.FetchHeader(ctx, uid)
		if errors.Is(err, imap.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "fetching header of %d", uid)
		}
		dests, err := p.classifier.Classify(raw)
		if err != nil {
			p.logger.Warn("classification failed, leaving message in place",
				slog.Uint64("uid", uint64(uid)), slog.Any("error", err))
			continue
		}
		for _, dest := range dests {
			if dest == Discard {
				discard.Add(uid)
				continue
			}
			set := destinations[dest]
			set.Add(uid)
			destinations[dest] = set
		}
	}
	return destinations, discard, nil
}

// createMissing creates destination mailboxes the server does not have
// yet.
func (p *Pipeline) createMissing(ctx context.Context, m Mailer, destinations map[string]rangeset.Range) error {
	if len(destinations) == 0 {
		return nil
	}
	infos, err := m.List(ctx, "", "*")
	if err != nil {
		return errors.Wrap(err, "listing mailboxes")
	}
	existing := make(map[string]bool, len(infos))
	for _, info := range infos {
		existing[info.Name] = true
	}
	for _, dest := range sortedKeys(destinations) {
		if existing[dest] {
			continue
		}
		if err := m.Create(ctx, dest); err != nil {
			return errors.Wrapf(err, "creating %s", dest)
		}
		p.logger.Info("created mailbox", slog.String("mailbox", dest))
	}
	return nil
}

func sortedKeys(m map[string]rangeset.Range) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

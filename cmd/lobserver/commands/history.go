package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/history"
)

// HistoryCmd groups the revision archive subcommands.
type HistoryCmd struct {
	List HistoryListCmd `cmd:"" help:"List archived revisions, newest first"`
	Show HistoryShowCmd `cmd:"" help:"Print one archived revision"`
}

type HistoryListCmd struct {
	Limit  int    `short:"n" default:"20" help:"Maximum number of revisions to list"`
	Reason string `short:"r" help:"Only list revisions recorded for this reason (seed, update, snapshot, quarantine, reload)"`
}

func (h *HistoryListCmd) Run(g *Global, root *CLI) error {
	reason, err := history.ParseReason(h.Reason)
	if err != nil {
		return derrors.ValidationError(err.Error()).Build()
	}
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	revs, err := store.ListByReason(context.Background(), reason, h.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREASON\tBACKEND\tCREATED\tSIZE\tVALID")
	for _, r := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
			r.ID, r.Reason, r.Backend, r.CreatedAt.UTC().Format(time.RFC3339), r.Size, r.Valid)
	}
	return tw.Flush()
}

// HistoryShowCmd prints the payload of one revision. "latest" selects the newest.
type HistoryShowCmd struct {
	ID string `arg:"" help:"Revision id, or 'latest'"`
}

func (h *HistoryShowCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var rev history.Revision
	if h.ID == "latest" {
		rev, err = store.Latest(ctx)
	} else {
		rev, err = store.Get(ctx, h.ID)
	}
	if err != nil {
		return err
	}

	payload := rev.Payload
	if rev.Valid {
		var buf bytes.Buffer
		if json.Indent(&buf, rev.Payload, "", "  ") == nil {
			payload = buf.Bytes()
		}
	}
	if _, err := fmt.Fprintf(g.Out, "# %s %s %s %s\n", rev.ID, rev.Reason, rev.Backend, rev.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.Out, string(payload))
	return err
}

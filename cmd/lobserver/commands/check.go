package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// CheckCmd probes every configured backend and reports what it found.
type CheckCmd struct{}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	sel := cfg.Storage.Selection()
	primary, fallback := statestore.Openers(sel)

	if sel.Preferred() == statestore.KindRemote {
		if creds, err := statestore.ParseCredentials(sel.Credentials); err == nil {
			redacted, _ := json.Marshal(creds.Redacted())
			fmt.Fprintf(g.Out, "remote credentials: %s\n", redacted)
		}
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tBACKEND\tLOCATION\tSTATUS\tDOCUMENT\tTOOK")

	anyAvailable := false
	for _, entry := range []struct {
		role string
		open statestore.Opener
	}{
		{"primary", primary},
		{"fallback", fallback},
	} {
		if entry.open == nil {
			continue
		}
		res := bootstrap.Probe(ctx, entry.open, cfg.Storage.LoadTimeout)
		if !res.Available {
			name := string(sel.Preferred())
			if entry.role == "fallback" {
				name = string(statestore.KindFile)
			}
			fmt.Fprintf(tw, "%s\t%s\t-\tunavailable\t%s\t%s\n", entry.role, name, res.Reason, res.Duration.Round(time.Millisecond))
			continue
		}
		anyAvailable = true
		fmt.Fprintf(tw, "%s\t%s\t%s\tavailable\t%s\t%s\n",
			entry.role, res.Backend.Name(), describeLocation(res.Backend),
			describeDocument(ctx, res.Backend), res.Duration.Round(time.Millisecond))
		_ = res.Backend.Close()
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !anyAvailable {
		return derrors.BackendUnavailableError("no state backend available").Build()
	}
	return nil
}

func describeLocation(b statestore.Backend) string {
	switch b := b.(type) {
	case *statestore.FileBackend:
		return b.Path()
	case *statestore.BoltBackend:
		return b.Path()
	case *statestore.RemoteBackend:
		return b.Bucket() + "/" + b.Key()
	default:
		return "-"
	}
}

func describeDocument(ctx context.Context, b statestore.Backend) string {
	doc, err := b.Load(ctx)
	switch {
	case err == nil:
		return fmt.Sprintf("ok (%d bytes)", doc.Len())
	case statestore.IsNotFound(err):
		return "missing"
	case statestore.IsParse(err):
		return "corrupt"
	default:
		return "error: " + err.Error()
	}
}

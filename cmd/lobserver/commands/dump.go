package commands

import (
	"context"
	"fmt"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// DumpCmd prints the stored document without seeding or repairing anything.
type DumpCmd struct {
	Pretty bool `short:"p" help:"Indent the JSON output"`
}

func (d *DumpCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	backend, err := firstAvailable(ctx, cfg, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	doc, err := backend.Load(ctx)
	if err != nil {
		if statestore.IsNotFound(err) {
			return derrors.NotFoundError("no stored document").
				WithContext("backend", backend.Name()).
				Build()
		}
		return err
	}
	g.Logger.Debug("Loaded document", logfields.Backend(backend.Name()), logfields.Bytes(doc.Len()))

	out := doc.Bytes()
	if d.Pretty {
		if out, err = doc.Indent(); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(g.Out, string(out))
	return err
}

package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// SeedCmd writes the built-in default document.
type SeedCmd struct {
	Force bool `help:"Overwrite an existing (or corrupt) document"`
}

func (s *SeedCmd) Run(g *Global, root *CLI) error {
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

	_, loadErr := backend.Load(ctx)
	switch {
	case loadErr == nil && !s.Force:
		_, err = fmt.Fprintf(g.Out, "%s already holds a document; use --force to overwrite\n", backend.Name())
		return err
	case statestore.IsParse(loadErr) && !s.Force:
		return derrors.ValidationError("stored document is corrupt; use --force to overwrite").
			WithCause(loadErr).
			Build()
	case loadErr != nil && !statestore.IsNotFound(loadErr) && !statestore.IsParse(loadErr):
		return loadErr
	}

	def, err := appstate.Default()
	if err != nil {
		return err
	}
	if err := backend.Save(ctx, def); err != nil {
		return err
	}
	g.Logger.Info("Seeded default document", logfields.Backend(backend.Name()), logfields.Bytes(def.Len()))
	_, err = fmt.Fprintf(g.Out, "seeded %s with the default document\n", backend.Name())
	return err
}

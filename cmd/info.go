package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/achilleasa/sunray/asset"
	"github.com/urfave/cli"
)

// Display compiled bundle info.
func ShowBundleInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing compiled bundle file")
	}

	location := ctx.Args().First()
	if !strings.HasSuffix(location, ".zip") {
		return errors.New("only compiled bundles with a .zip extension are supported")
	}

	b, err := asset.OpenBundle(context.Background(), location)
	if err != nil {
		return err
	}
	logger.Noticef("bundle information:\n%s", b.Stats())

	lib, err := b.Load(context.Background(), nil)
	if err != nil {
		return err
	}
	logger.Noticef("scene index statistics:\n%s", lib.Index().Stats(lib.Options()))

	return nil
}

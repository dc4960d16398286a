package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docprep/cmd/docprep/commands"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("docprep"),
		kong.Description("Prepare a Sphinx/Breathe documentation build: gated Doxygen extraction and conf.py generation."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
		kong.Bind(global, &cli),
	)

	err := ctx.Run()
	global.Close()
	ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}

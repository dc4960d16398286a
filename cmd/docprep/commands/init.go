package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"git.home.luguber.info/inful/docprep/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
	TOML   bool   `name:"toml" help:"Write docprep.toml instead of docprep.yaml"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" || i.TOML {
		name := config.DefaultFile
		if i.TOML {
			name = "docprep.toml"
		}
		dir := i.Output
		if dir == "" {
			dir = filepath.Dir(root.Config)
		}
		path = filepath.Join(dir, name)
	}
	return RunInit(g.out(), path, i.Force)
}

func RunInit(w io.Writer, configPath string, force bool) error {
	_, _ = fmt.Fprintln(w, "Initializing docprep project")
	_, _ = fmt.Fprintf(w, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		_, _ = fmt.Fprintln(w, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(w, "initialized successfully")
	return nil
}

package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

const initHeader = "# docprep configuration. Values below reproduce the CwAPI3D conf.py.\n" +
	"# ${VAR} references are expanded from the environment and .env files.\n"

// Marshal encodes c in the format implied by name's extension.
func Marshal(name string, c *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(initHeader)
	if isTOML(name) {
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "encode TOML configuration").Build()
		}
		return buf.Bytes(), nil
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "encode YAML configuration").Build()
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Init writes the default configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	data, err := Marshal(path, Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create configuration directory").
				WithContext("dir", dir).Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).Build()
	}
	return nil
}

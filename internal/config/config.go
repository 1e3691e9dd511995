// Package config loads optional project-wide defaults from a medusa.hcl
// file. Command-line flags always win over file values.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultPath is looked up in the working directory when no --config flag
// is given.
const DefaultPath = "medusa.hcl"

// File mirrors the medusa.hcl schema.
type File struct {
	OutputDir string   `hcl:"outputdir,optional"`
	Workers   int      `hcl:"workers,optional"`
	Timeout   string   `hcl:"timeout,optional"`
	Filters   []string `hcl:"filter,optional"`
	Log       *Log     `hcl:"log,block"`
}

// Log is the optional log block.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Load parses the given config file.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config '%s': %s", path, diags.Error())
	}

	var out File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &out); diags.HasErrors() {
		return nil, fmt.Errorf("invalid config '%s': %s", path, diags.Error())
	}
	return &out, nil
}

// LoadIfPresent loads the file at path, or the default path when path is
// empty. A missing default file is not an error; a missing explicit path is.
func LoadIfPresent(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file '%s' not found", path)
		}
		return &File{}, nil
	}
	return Load(path)
}

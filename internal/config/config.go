// Package config defines the project configuration document (spec.md
// §6): a YAML key-value document recognized by every pipeline stage and
// CLI subcommand, replacing the teacher's process-wide config singleton
// with an explicit value constructed once at process start and threaded
// into each stage (spec.md §9's "Global configuration" design note).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WebFramework selects the source/sink rule family.
type WebFramework string

const (
	FrameworkStruts2    WebFramework = "Struts2"
	FrameworkSpringMVC  WebFramework = "SpringMVC"
)

// FileName is the config document's name inside a project directory.
const FileName = "taintgraph.yml"

// Config is the project configuration document, spec.md §6's recognized
// key set.
type Config struct {
	Name         string       `yaml:"name"`
	TargetDir    string       `yaml:"target-dir"`
	DB           string       `yaml:"DB"`
	WebFramework WebFramework `yaml:"web-framework"`
	StrutsXML    string       `yaml:"STRUTS_XML,omitempty"`
	JSPFilesDir  string       `yaml:"JSPFilesDir,omitempty"`
	ViewsDir     string       `yaml:"VIEWS_DIR,omitempty"`

	OrientDBName string `yaml:"orientdb-name,omitempty"`
	OrientDBUser string `yaml:"orientdb-user,omitempty"`
	OrientDBPass string `yaml:"orientdb-pass,omitempty"`
	GremlinName  string `yaml:"gremlin-name,omitempty"`
}

// GraphDBConfigured reports whether any graph-DB key was set — the
// signal internal/store.NewGraphDBClient uses to pick between the null
// client and an error.
func (c *Config) GraphDBConfigured() bool {
	return c.OrientDBName != "" || c.GremlinName != ""
}

// Path returns the config document's path inside a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Init creates a new project directory with a default config document.
// It refuses to overwrite an existing directory, matching spec.md §6's
// "init refuses to overwrite an existing directory".
func Init(projectDir, name string) (*Config, error) {
	if _, err := os.Stat(projectDir); err == nil {
		return nil, fmt.Errorf("project directory %q already exists", projectDir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking project directory %q: %w", projectDir, err)
	}

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating project directory %q: %w", projectDir, err)
	}

	cfg := &Config{
		Name:         name,
		TargetDir:    ".",
		DB:           name + ".db",
		WebFramework: FrameworkSpringMVC,
	}
	if err := cfg.Save(projectDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config document into projectDir, overwriting any
// existing one.
func (c *Config) Save(projectDir string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(Path(projectDir), out, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Load reads and parses the config document from projectDir.
func Load(projectDir string) (*Config, error) {
	raw, err := os.ReadFile(Path(projectDir))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
